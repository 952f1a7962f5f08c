package record

import "time"

// Patch lists the fields an update writes. Nil fields are left untouched.
type Patch struct {
	Status               *Status
	LastResult           *Result
	TransferEndTimestamp *time.Time
	SessionID            *string
	RemotePath           *string
	FileSize             *int64
}

// Columns returns the column/value map for a gorm Updates call.
func (p Patch) Columns() (cols map[string]any) {
	cols = make(map[string]any)
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.LastResult != nil {
		cols["last_result"] = *p.LastResult
	}
	if p.TransferEndTimestamp != nil {
		cols["transfer_end_timestamp"] = *p.TransferEndTimestamp
	}
	if p.SessionID != nil {
		cols["session_id"] = *p.SessionID
	}
	if p.RemotePath != nil {
		cols["remote_path"] = *p.RemotePath
	}
	if p.FileSize != nil {
		cols["file_size"] = *p.FileSize
	}
	return
}

// Apply writes the non-nil fields into r.
func (p Patch) Apply(r *Record) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.LastResult != nil {
		r.LastResult = p.LastResult
	}
	if p.TransferEndTimestamp != nil {
		r.TransferEndTimestamp = p.TransferEndTimestamp
	}
	if p.SessionID != nil {
		r.SessionID = *p.SessionID
	}
	if p.RemotePath != nil {
		r.RemotePath = *p.RemotePath
	}
	if p.FileSize != nil {
		r.FileSize = *p.FileSize
	}
}

// Terminal builds the patch that closes an attempt.
func Terminal(result Result, at time.Time) Patch {
	status := StatusFailed
	if result == ResultSuccess {
		status = StatusSucceeded
	}
	return Patch{
		Status:               &status,
		LastResult:           &result,
		TransferEndTimestamp: &at,
	}
}
