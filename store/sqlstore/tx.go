package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/derektruong/cloudxfer/store"
	"gorm.io/gorm"
)

// WithTxRetry runs fn in a transaction, retrying at least three times on
// storage errors. Not-found and transition errors are returned at once.
func WithTxRetry(ctx context.Context, db *gorm.DB, attempts int, fn func(tx *gorm.DB) error) error {
	if attempts < defaultTxRetry {
		attempts = defaultTxRetry
	}
	return retry.Do(
		func() error {
			return db.WithContext(ctx).Transaction(fn)
		},
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(10*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, store.ErrRecordNotFound) &&
				!errors.Is(err, store.ErrInvalidTransition) &&
				!errors.Is(err, context.Canceled)
		}),
	)
}
