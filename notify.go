package cloudxfer

import (
	"context"
	"fmt"

	"github.com/derektruong/cloudxfer/record"
	"github.com/go-logr/logr"
)

// EventKind tells what a notification is about.
type EventKind string

const (
	EventSucceeded EventKind = "SUCCEEDED"
	EventFailed    EventKind = "FAILED"
	// EventCredentialsExpired asks the user to refresh the account credentials.
	EventCredentialsExpired EventKind = "CREDENTIALS_EXPIRED"
)

// Event is the terminal notification of a record.
type Event struct {
	Kind        EventKind
	RecordID    int64
	AccountName string
	RecordKind  record.Kind
	LocalPath   string
	RemotePath  string
	Result      record.Result
	Err         error
}

// Notifier receives terminal transfer events. Its outcome never changes the
// outcome of the transfer.
type Notifier interface {
	// Notify delivers an event
	//
	// Parameters:
	//   - ctx: the context
	//   - event: the terminal event
	//
	// Returns:
	//   - err: logged by the caller, nil otherwise
	Notify(ctx context.Context, event Event) (err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	logger logr.Logger
}

func NewLogNotifier(logger logr.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithName("notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) (err error) {
	keysAndValues := []any{
		"recordID", event.RecordID, "account", event.AccountName,
		"kind", event.RecordKind, "remotePath", event.RemotePath, "result", event.Result,
	}
	switch event.Kind {
	case EventSucceeded:
		n.logger.Info("transfer succeeded", keysAndValues...)
	case EventCredentialsExpired:
		n.logger.Error(event.Err, "credentials expired, refresh the account and retry", keysAndValues...)
	default:
		n.logger.Error(event.Err, "transfer failed", keysAndValues...)
	}
	return
}

// eventOf builds the event of a terminal result, ok is false when the
// result is not notified.
func eventOf(rec record.Record, result record.Result, cause error) (event Event, ok bool) {
	event = Event{
		RecordID:    rec.ID,
		AccountName: rec.AccountName,
		RecordKind:  rec.Kind,
		LocalPath:   rec.LocalPath,
		RemotePath:  rec.RemotePath,
		Result:      result,
		Err:         cause,
	}
	switch result {
	case record.ResultCancelled:
		return event, false
	case record.ResultSuccess:
		event.Kind = EventSucceeded
	case record.ResultUnauthorized:
		event.Kind = EventCredentialsExpired
	default:
		event.Kind = EventFailed
	}
	return event, true
}

// notifySafely delivers event, errors and panics of the notifier are logged.
func notifySafely(ctx context.Context, logger logr.Logger, notifier Notifier, event Event) {
	if notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("notifier panic: %v", r), "failed to notify", "recordID", event.RecordID)
		}
	}()
	if err := notifier.Notify(ctx, event); err != nil {
		logger.Error(err, "failed to notify", "recordID", event.RecordID)
	}
}
