package recordtest

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/derektruong/cloudxfer/record"
	"github.com/samber/lo"
)

// UploadFactory returns a QUEUED upload record from a filesystem path.
func UploadFactory() *record.Record {
	ext := gofakeit.FileExtension()
	name := fmt.Sprintf("%s.%s", gofakeit.Word(), ext)
	var spaceID *string
	if gofakeit.Bool() {
		spaceID = lo.ToPtr(gofakeit.UUID())
	}
	return &record.Record{
		AccountName: gofakeit.Username(),
		SpaceID:     spaceID,
		Kind:        record.KindUpload,
		LocalPath:   fmt.Sprintf("/tmp/%s/%s", gofakeit.Word(), name),
		RemotePath:  fmt.Sprintf("/%s/%s", gofakeit.Word(), name),
		FileSize:    int64(gofakeit.Number(1, 1<<20)),
		Behavior:    record.BehaviorCopy,
		Status:      record.StatusQueued,
	}
}

// DownloadFactory returns a QUEUED download record.
func DownloadFactory() *record.Record {
	r := UploadFactory()
	r.Kind = record.KindDownload
	return r
}

// SucceededFactory returns a SUCCEEDED upload finished at the given time.
func SucceededFactory(finishedAt time.Time) *record.Record {
	r := UploadFactory()
	r.Status = record.StatusSucceeded
	r.LastResult = record.ResultSuccess.Ptr()
	r.TransferEndTimestamp = &finishedAt
	return r
}
