package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/derektruong/cloudxfer/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var fileStateKeyColumns = []clause.Column{
	{Name: "account_name"},
	{Name: "space_id"},
	{Name: "remote_path"},
}

// GormFileStateStor is the gorm backed store.FileStateStore.
type GormFileStateStor struct {
	db      *gorm.DB
	txRetry int
}

func NewGormFileStateStor(db *gorm.DB, txRetry int) *GormFileStateStor {
	return &GormFileStateStor{db: db, txRetry: txRetry}
}

func (s *GormFileStateStor) EtagInConflict(ctx context.Context, key store.FileKey) (etag string, err error) {
	var state store.FileState
	err = s.db.WithContext(ctx).
		Where("account_name = ? AND space_id = ? AND remote_path = ?", key.AccountName, key.SpaceID, key.RemotePath).
		First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	etag = state.EtagInConflict
	return
}

func (s *GormFileStateStor) SetConflict(ctx context.Context, key store.FileKey, etag string) (err error) {
	state := store.FileState{
		AccountName:    key.AccountName,
		SpaceID:        key.SpaceID,
		RemotePath:     key.RemotePath,
		EtagInConflict: etag,
	}
	return WithTxRetry(ctx, s.db, s.txRetry, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   fileStateKeyColumns,
			DoUpdates: clause.AssignmentColumns([]string{"etag_in_conflict"}),
		}).Create(&state).Error
	})
}

func (s *GormFileStateStor) MarkSynced(
	ctx context.Context,
	key store.FileKey,
	etag string,
	localModTime time.Time,
) (err error) {
	now := time.Now()
	state := store.FileState{
		AccountName:       key.AccountName,
		SpaceID:           key.SpaceID,
		RemotePath:        key.RemotePath,
		Etag:              etag,
		LastSyncTimestamp: &now,
		LocalModTime:      &localModTime,
	}
	return WithTxRetry(ctx, s.db, s.txRetry, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: fileStateKeyColumns,
			DoUpdates: clause.Assignments(map[string]any{
				"etag":                etag,
				"etag_in_conflict":    "",
				"last_sync_timestamp": now,
				"local_mod_time":      localModTime,
			}),
		}).Create(&state).Error
	})
}
