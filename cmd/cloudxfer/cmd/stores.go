package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/derektruong/cloudxfer/store/sqlstore"
	"gorm.io/gorm"
)

const memoryDatabase = ":memory:"

// openDatabase opens the transfer database, creating its directory.
func openDatabase() (db *gorm.DB, closeDB func(), err error) {
	if cfg.Database.Path != memoryDatabase {
		if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	if db, err = sqlstore.Open(logger, sqlstore.Config{
		Path:          cfg.Database.Path,
		TxRetry:       cfg.Database.TxRetry,
		SlowThreshold: cfg.Database.SlowThreshold,
	}); err != nil {
		return
	}
	closeDB = func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			if dbErr = sqlDB.Close(); dbErr != nil {
				logger.Error(dbErr, "failed to close database")
			}
		}
	}
	return
}

func openTransfers() (transfers *sqlstore.GormTransferStor, closeDB func(), err error) {
	var db *gorm.DB
	if db, closeDB, err = openDatabase(); err != nil {
		return
	}
	transfers = sqlstore.NewGormTransferStor(db, cfg.Database.TxRetry)
	return
}
