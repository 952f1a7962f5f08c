package xferfiletest_test

import (
	"github.com/derektruong/cloudxfer/internal/xferfile"
	"github.com/derektruong/cloudxfer/internal/xferfile/xferfiletest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gstruct"
)

var _ = Describe("InfoFactory", func() {
	It("should build a consistent random Info", func() {
		info := xferfiletest.InfoFactory()
		Expect(*info).To(gstruct.MatchFields(gstruct.IgnoreExtras, gstruct.Fields{
			"Path":       HaveSuffix("/" + info.Name + "." + info.Extension),
			"Size":       BeNumerically(">", 0),
			"ModTime":    Not(BeZero()),
			"StartTime":  BeTemporally("<", info.FinishTime),
			"Offset":     BeNumerically("<=", info.Size),
			"Metadata":   HaveKeyWithValue("filename", info.FileName()),
			"FinishTime": Not(BeZero()),
		}))
		Expect(info.Remaining()).To(Equal(info.Size - info.Offset))
	})

	It("should apply the edit functions in order and skip nil ones", func() {
		info := xferfiletest.InfoFactory(
			func(info *xferfile.Info) { info.Size = 100 },
			nil,
			func(info *xferfile.Info) { info.Offset = info.Size / 4 },
		)
		Expect(info.Size).To(BeEquivalentTo(100))
		Expect(info.Offset).To(BeEquivalentTo(25))
		Expect(info.Remaining()).To(BeEquivalentTo(75))
	})
})
