package storage

import (
	"errors"
	"fmt"
)

var (
	ErrSourceInvalid         = errors.New("storage: local source invalid")
	ErrSourceMissing         = errors.New("storage: record has no local path nor source handle")
	ErrHandleNotSupported    = errors.New("storage: source handle not supported")
	ErrDestinationIncomplete = func(expected, got int64) error {
		return fmt.Errorf("storage: wrote %d bytes, expected %d", got, expected)
	}
)
