package cloudxfer

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/storage"
)

var (
	// ErrCancelled is returned by a strategy that observed its stop flag.
	ErrCancelled = errors.New("transfer cancelled")
	// ErrUnknownAccount is returned when the record account has no client.
	ErrUnknownAccount = errors.New("unknown account")
)

// Classify maps the error of an attempt to the result persisted on the
// record. The first matching rule wins.
func Classify(err error) record.Result {
	var (
		opErr  *net.OpError
		netErr net.Error
	)
	switch {
	case err == nil:
		return record.ResultSuccess
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled):
		return record.ResultCancelled
	case errors.Is(err, storage.ErrSourceInvalid),
		errors.Is(err, ErrFileRuleViolation),
		errors.Is(err, ErrUnknownAccount):
		return record.ResultLocalSourceInvalid
	case errors.Is(err, protoc.ErrUnauthorized):
		return record.ResultUnauthorized
	case errors.Is(err, protoc.ErrNetworkUnreachable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.As(err, &opErr):
		return record.ResultNetworkUnreachable
	case errors.As(err, &netErr) && netErr.Timeout():
		return record.ResultNetworkUnreachable
	case errors.Is(err, protoc.ErrPreconditionFailed), errors.Is(err, ErrCollisionExhausted):
		return record.ResultRemoteConflict
	case errors.Is(err, protoc.ErrQuotaExceeded):
		return record.ResultQuotaExceeded
	default:
		return record.ResultUnknown
	}
}
