package cloudxfer

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/derektruong/cloudxfer/internal/iometer"
)

// ProgressUpdatedCallback is a function that is called when the
// progress of a transfer is updated.
type ProgressUpdatedCallback func(progress Progress)

// ProgressStatus is an enum that represents the status of the progress
type ProgressStatus int

const (
	// ProgressStatusInProgress is the status of the progress when the transfer is in progress
	ProgressStatusInProgress ProgressStatus = iota
	// ProgressStatusFinished is the status of the progress when the transfer is finished
	ProgressStatusFinished
	// ProgressStatusInError is the status of the progress when the transfer is in error
	ProgressStatusInError
)

// Progress is a struct that contains information about the progress
type Progress struct {
	// RecordID is the id of the transferred record
	RecordID int64

	// Status is the status of the progress
	Status ProgressStatus

	// TotalSize is the total number of bytes that need to be transferred, -1 when unknown
	TotalSize int64

	// TransferredSize is the number of bytes that have been transferred
	TransferredSize int64

	// Percentage is the percentage of the transfer that has been completed,
	// -1 when Indeterminate
	Percentage int

	// Indeterminate is true when the total size is unknown
	Indeterminate bool

	// Speed is the speed of the transfer in bytes per second
	Speed int64

	// Duration is the duration of the transfer
	Duration time.Duration

	// Error is the error that occurred during the transfer (when Status is ProgressStatusInError)
	Error error

	// StartAt is the time when the transfer started
	StartAt time.Time

	// FinishAt is the time when the transfer finished
	FinishAt time.Time
}

const (
	// finishedProgress is the progress value that is used when
	// the transfer is finished (100%)
	finishedProgress = 100
	// indeterminateStep is the number of bytes between two progress
	// updates when the total size is unknown
	indeterminateStep = 1 << 20
)

// progressReporter turns byte counts into throttled Progress updates: a
// percent is emitted only when it grows.
type progressReporter struct {
	recordID int64
	cb       ProgressUpdatedCallback
	startAt  time.Time

	mu          sync.Mutex
	soFar       int64
	expected    int64
	lastPercent int
	// unreported counts the bytes since the last indeterminate update
	unreported int64
}

func newProgressReporter(recordID, expected int64, cb ProgressUpdatedCallback) (p *progressReporter) {
	if cb == nil {
		cb = func(Progress) {}
	}
	return &progressReporter{
		recordID:    recordID,
		cb:          cb,
		startAt:     time.Now(),
		expected:    expected,
		lastPercent: -1,
	}
}

// reader meters r, every read advances the progress. A positive
// bytesPerSec throttles the reads.
func (p *progressReporter) reader(ctx context.Context, r io.Reader, bytesPerSec float64) (tr *iometer.TransferReader) {
	tr = iometer.NewTransferReader(r, nil).WithContext(ctx).OnRead(p.add)
	tr.SetRateLimit(bytesPerSec)
	return
}

// add advances the progress by n bytes.
func (p *progressReporter) add(n int64) {
	p.mu.Lock()
	soFar, expected := p.soFar+n, p.expected
	p.mu.Unlock()
	p.onTransferProgress(n, soFar, expected)
}

// advanceTo moves the progress to an absolute offset, used when a transfer
// resumes from a server reported offset.
func (p *progressReporter) advanceTo(offset int64) {
	p.mu.Lock()
	sinceLast, expected := offset-p.soFar, p.expected
	p.mu.Unlock()
	p.onTransferProgress(sinceLast, offset, expected)
}

// setExpected updates the total size once it is known.
func (p *progressReporter) setExpected(expected int64) {
	p.mu.Lock()
	p.expected = expected
	p.mu.Unlock()
}

// onTransferProgress records that soFar of expected bytes were transferred,
// expected is -1 when unknown.
func (p *progressReporter) onTransferProgress(sinceLast, soFar, expected int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if soFar > p.soFar {
		p.soFar = soFar
	}

	if expected < 0 {
		p.unreported += max(sinceLast, 0)
		if p.unreported < indeterminateStep {
			return
		}
		p.unreported = 0
		p.cb(p.progress(ProgressStatusInProgress, -1, true))
		return
	}

	percent := finishedProgress
	if expected > 0 {
		percent = int(min(finishedProgress, max(0, 100*p.soFar/expected)))
	}
	if percent <= p.lastPercent {
		return
	}
	p.lastPercent = percent
	p.cb(p.progress(ProgressStatusInProgress, percent, false))
}

// finish emits the terminal update of the transfer.
func (p *progressReporter) finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		percent := max(p.lastPercent, 0)
		progress := p.progress(ProgressStatusInError, percent, p.expected < 0)
		progress.Error = err
		p.cb(progress)
		return
	}
	progress := p.progress(ProgressStatusFinished, finishedProgress, false)
	progress.FinishAt = time.Now()
	p.lastPercent = finishedProgress
	p.cb(progress)
}

func (p *progressReporter) progress(status ProgressStatus, percent int, indeterminate bool) Progress {
	duration := time.Since(p.startAt)
	return Progress{
		RecordID:        p.recordID,
		Status:          status,
		TotalSize:       p.expected,
		TransferredSize: p.soFar,
		Percentage:      percent,
		Indeterminate:   indeterminate,
		Duration:        duration,
		Speed:           p.soFar / int64(max(1, duration.Seconds())),
		StartAt:         p.startAt,
	}
}
