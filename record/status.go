package record

import (
	"database/sql/driver"
	"fmt"
)

// Status is the lifecycle state of a record. The numeric values are persisted.
type Status int

const (
	StatusQueued Status = iota
	StatusInProgress
	StatusFailed
	StatusSucceeded
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "QUEUED"
	case StatusInProgress:
		return "IN_PROGRESS"
	case StatusFailed:
		return "FAILED"
	case StatusSucceeded:
		return "SUCCEEDED"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusSucceeded
}

// CanTransition reports whether a record in status from may move to status to.
// Writing the same status again is allowed so field-only patches pass through.
func CanTransition(from, to Status) bool {
	if from == to {
		return !from.IsTerminal()
	}
	switch from {
	case StatusQueued:
		return to == StatusInProgress
	case StatusInProgress:
		return to == StatusSucceeded || to == StatusFailed
	default:
		return false
	}
}

// Result is the classified outcome of the last attempt.
type Result string

const (
	ResultSuccess            Result = "Success"
	ResultLocalSourceInvalid Result = "LocalSourceInvalid"
	ResultUnauthorized       Result = "Unauthorized"
	ResultNetworkUnreachable Result = "NetworkUnreachable"
	ResultRemoteConflict     Result = "RemoteConflict"
	ResultQuotaExceeded      Result = "QuotaExceeded"
	ResultCancelled          Result = "Cancelled"
	ResultUnknown            Result = "Unknown"
)

// Retryable reports whether the scheduler may re-enqueue a record that failed
// with this result.
func (r Result) Retryable() bool {
	return r == ResultNetworkUnreachable
}

// Ptr returns a pointer to a copy of r, handy for patches.
func (r Result) Ptr() *Result {
	return &r
}

// Value implements driver.Valuer so the result is stored as text.
func (r Result) Value() (driver.Value, error) {
	return string(r), nil
}

// Scan implements sql.Scanner.
func (r *Result) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*r = Result(v)
	case []byte:
		*r = Result(v)
	case nil:
		*r = ""
	default:
		return fmt.Errorf("record: cannot scan %T into Result", src)
	}
	return nil
}
