package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/derektruong/cloudxfer/internal/iometer"
	"github.com/derektruong/cloudxfer/storage"
	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type Destination struct {
	logger logr.Logger
	fs     afero.Fs

	// bytesTransferred are used to store the destination bytes transferred
	bytesTransferred *int64
}

func NewDestination(logger logr.Logger, fs afero.Fs) (d *Destination, err error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	d = &Destination{
		logger:           logger.WithName("local.destination"),
		fs:               fs,
		bytesTransferred: new(int64),
	}
	if err = d.registerMeterCallback(); err != nil {
		return
	}
	return
}

func (d *Destination) Write(
	ctx context.Context,
	localPath string,
	body io.Reader,
	size int64,
	modTime time.Time,
) (n int64, err error) {
	dir := filepath.Dir(localPath)
	if err = d.fs.MkdirAll(dir, defaultDirPerm); err != nil {
		return
	}

	tmp := partPath(localPath)
	var file afero.File
	if file, err = d.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm); err != nil {
		return
	}
	transferReader := iometer.NewTransferReader(body, d.bytesTransferred).WithContext(ctx)
	n, err = io.Copy(file, transferReader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && size >= 0 && n != size {
		err = storage.ErrDestinationIncomplete(size, n)
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		if rmErr := d.fs.Remove(tmp); rmErr != nil {
			d.logger.Error(rmErr, "failed to remove partial file", "path", tmp)
		}
		return
	}

	if err = d.fs.Rename(tmp, localPath); err != nil {
		return
	}
	if !modTime.IsZero() {
		err = d.fs.Chtimes(localPath, modTime, modTime)
	}
	return
}

// partPath returns the hidden sibling a download is streamed into.
func partPath(localPath string) string {
	id := strconv.FormatInt(time.Now().UnixNano(), 36)
	return filepath.Join(filepath.Dir(localPath), fmt.Sprintf(".%s.%s.part", filepath.Base(localPath), id))
}

func (d *Destination) registerMeterCallback() (err error) {
	meter := otel.GetMeterProvider().Meter(fmt.Sprintf("%s/destination", meterNamePrefix))
	var totalBytesTransferred metric.Int64ObservableCounter
	if totalBytesTransferred, err = meter.Int64ObservableCounter("bytes_transferred"); err != nil {
		return
	}

	// setup observer
	_, err = meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) (err error) {
			o.ObserveInt64(totalBytesTransferred, d.TransferredSize())
			return
		},
		totalBytesTransferred,
	)
	return
}

// TransferredSize returns the number of bytes written by the destination.
func (d *Destination) TransferredSize() int64 {
	return atomic.LoadInt64(d.bytesTransferred)
}
