package xferfiletest

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/derektruong/cloudxfer/internal/xferfile"
)

// InfoFactory builds a random Info, then applies the edit functions.
func InfoFactory(editFns ...func(info *xferfile.Info)) *xferfile.Info {
	ext := gofakeit.FileExtension()
	name := gofakeit.Word()
	size := int64(gofakeit.Number(1, 1000000))
	info := &xferfile.Info{
		Path:       fmt.Sprintf("/%s/%s.%s", gofakeit.Word(), name, ext),
		Size:       size,
		Name:       name,
		Extension:  ext,
		ModTime:    gofakeit.PastDate(),
		StartTime:  gofakeit.PastDate(),
		FinishTime: gofakeit.FutureDate(),
		Offset:     int64(gofakeit.Number(0, int(size))),
		Metadata: map[string]string{
			"filename": fmt.Sprintf("%s.%s", name, ext),
		},
	}
	for _, editFn := range editFns {
		if editFn != nil {
			editFn(info)
		}
	}
	return info
}
