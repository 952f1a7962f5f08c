// Package sqlstore implements the transfer and file-state stores on gorm.
package sqlstore

import (
	"fmt"
	"time"

	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/store"
	"github.com/go-logr/logr"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const defaultTxRetry = 3

// Config configures the sqlite database.
type Config struct {
	// Path is the sqlite file path; ":memory:" keeps the database in memory.
	Path string
	// TxRetry is the number of attempts for a transaction, at least 3.
	TxRetry int
	// SlowThreshold is the duration above which gorm logs a query as slow.
	SlowThreshold time.Duration
}

// Open connects to sqlite and migrates the tables.
func Open(logger logr.Logger, cfg Config) (db *gorm.DB, err error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", cfg.Path)
	if db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: newGormLogger(logger.WithName("gorm"), cfg.SlowThreshold),
	}); err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Path, err)
	}

	// sqlite serializes writers anyway, one connection avoids SQLITE_BUSY churn
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err = db.AutoMigrate(&record.Record{}, &store.FileState{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return
}

// logrWriter adapts logr to gorm's printf style logger.
type logrWriter struct {
	logger logr.Logger
}

func (w logrWriter) Printf(format string, args ...any) {
	w.logger.V(1).Info(fmt.Sprintf(format, args...))
}

func newGormLogger(logger logr.Logger, slow time.Duration) gormlogger.Interface {
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}
	return gormlogger.New(logrWriter{logger: logger}, gormlogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
