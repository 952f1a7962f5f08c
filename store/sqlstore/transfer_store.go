package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/store"
	"gorm.io/gorm"
)

// GormTransferStor is the gorm backed store.TransferStore.
type GormTransferStor struct {
	db      *gorm.DB
	txRetry int
}

func NewGormTransferStor(db *gorm.DB, txRetry int) *GormTransferStor {
	return &GormTransferStor{db: db, txRetry: txRetry}
}

func (s *GormTransferStor) Insert(ctx context.Context, rec *record.Record) (err error) {
	rec.ID = 0
	return WithTxRetry(ctx, s.db, s.txRetry, func(tx *gorm.DB) (err error) {
		if err = tx.Create(rec).Error; err != nil {
			return
		}
		return trimSucceeded(tx)
	})
}

func (s *GormTransferStor) Update(ctx context.Context, id int64, patch record.Patch) (err error) {
	return WithTxRetry(ctx, s.db, s.txRetry, func(tx *gorm.DB) (err error) {
		var current record.Record
		if err = tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = fmt.Errorf("%w: %d", store.ErrRecordNotFound, id)
			}
			return
		}
		if patch.Status != nil && !record.CanTransition(current.Status, *patch.Status) {
			return fmt.Errorf("%w: record %d %s -> %s",
				store.ErrInvalidTransition, id, current.Status, *patch.Status)
		}
		if cols := patch.Columns(); len(cols) > 0 {
			if err = tx.Model(&record.Record{}).Where("id = ?", id).Updates(cols).Error; err != nil {
				return
			}
		}
		return trimSucceeded(tx)
	})
}

func (s *GormTransferStor) GetByID(ctx context.Context, id int64) (rec record.Record, err error) {
	if err = s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = fmt.Errorf("%w: %d", store.ErrRecordNotFound, id)
		}
	}
	return
}

func (s *GormTransferStor) ListByStatus(ctx context.Context, status record.Status) (recs []record.Record, err error) {
	err = s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("id ASC").
		Find(&recs).Error
	return
}

// trimSucceeded keeps the newest store.MaxSucceededRecords successes by
// completion time and deletes the rest.
func trimSucceeded(tx *gorm.DB) (err error) {
	var keep []int64
	if err = tx.Model(&record.Record{}).
		Where("status = ?", record.StatusSucceeded).
		Order("transfer_end_timestamp DESC").
		Order("id DESC").
		Limit(store.MaxSucceededRecords).
		Pluck("id", &keep).Error; err != nil {
		return
	}
	if len(keep) < store.MaxSucceededRecords {
		return
	}
	return tx.
		Where("status = ? AND id NOT IN ?", record.StatusSucceeded, keep).
		Delete(&record.Record{}).Error
}
