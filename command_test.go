package cloudxfer_test

import (
	"context"
	"time"

	"github.com/derektruong/cloudxfer"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/store/sqlstore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
)

func uploadCommandFactory(editFn func(cmd *cloudxfer.UploadCommand)) (cmd cloudxfer.UploadCommand) {
	cmd = cloudxfer.UploadCommand{
		AccountName: "alice",
		LocalPath:   "/home/alice/report.pdf",
		RemotePath:  "/docs/report.pdf",
		FileSize:    1024,
	}
	if editFn != nil {
		editFn(&cmd)
	}
	return
}

func downloadCommandFactory(editFn func(cmd *cloudxfer.DownloadCommand)) (cmd cloudxfer.DownloadCommand) {
	cmd = cloudxfer.DownloadCommand{
		AccountName: "alice",
		RemotePath:  "/docs/report.pdf",
		LocalPath:   "/home/alice/report.pdf",
		FileSize:    -1,
	}
	if editFn != nil {
		editFn(&cmd)
	}
	return
}

type wakeCounter struct{ n int }

func (w *wakeCounter) Notify() { w.n++ }

var _ = Describe("Command", func() {
	It("should validate upload command correctly", func(ctx context.Context) {
		Expect(uploadCommandFactory(nil).Validate(ctx)).To(Succeed())
		Expect(uploadCommandFactory(func(cmd *cloudxfer.UploadCommand) {
			cmd.LocalPath = ""
			cmd.SourceHandle = "content://media/42"
		}).Validate(ctx)).To(Succeed())
	}, NodeTimeout(10*time.Second))

	It("should validate download command correctly", func(ctx context.Context) {
		Expect(downloadCommandFactory(nil).Validate(ctx)).To(Succeed())
	}, NodeTimeout(10*time.Second))

	DescribeTable(
		"Validate upload command matches with validation",
		func(ctx context.Context, cmd cloudxfer.UploadCommand, expectedMsg string) {
			Expect(cmd.Validate(ctx)).To(MatchError(ContainSubstring(expectedMsg)))
		},
		Entry(
			"should return error if account is empty",
			uploadCommandFactory(func(cmd *cloudxfer.UploadCommand) { cmd.AccountName = "" }),
			"Key: 'UploadCommand.AccountName' Error:Field validation for 'AccountName' failed on the 'required' tag",
			NodeTimeout(10*time.Second),
		),
		Entry(
			"should return error if remote path is relative",
			uploadCommandFactory(func(cmd *cloudxfer.UploadCommand) { cmd.RemotePath = "docs/a.txt" }),
			"Key: 'UploadCommand.RemotePath' Error:Field validation for 'RemotePath' failed on the 'startswith' tag",
			NodeTimeout(10*time.Second),
		),
		Entry(
			"should return error if both sources are set",
			uploadCommandFactory(func(cmd *cloudxfer.UploadCommand) { cmd.SourceHandle = "content://media/42" }),
			"Key: 'UploadCommand.LocalPath' Error:Field validation for 'LocalPath' failed on the 'excluded_with' tag",
			NodeTimeout(10*time.Second),
		),
		Entry(
			"should return error if no source is set",
			uploadCommandFactory(func(cmd *cloudxfer.UploadCommand) { cmd.LocalPath = "" }),
			"Key: 'UploadCommand.LocalPath' Error:Field validation for 'LocalPath' failed on the 'required_without' tag",
			NodeTimeout(10*time.Second),
		),
		Entry(
			"should return error if behavior is unknown",
			uploadCommandFactory(func(cmd *cloudxfer.UploadCommand) { cmd.Behavior = "LINK" }),
			"Key: 'UploadCommand.Behavior' Error:Field validation for 'Behavior' failed on the 'oneof' tag",
			NodeTimeout(10*time.Second),
		),
	)

	DescribeTable(
		"Validate download command matches with validation",
		func(ctx context.Context, cmd cloudxfer.DownloadCommand, expectedMsg string) {
			Expect(cmd.Validate(ctx)).To(MatchError(ContainSubstring(expectedMsg)))
		},
		Entry(
			"should return error if local path is empty",
			downloadCommandFactory(func(cmd *cloudxfer.DownloadCommand) { cmd.LocalPath = "" }),
			"Key: 'DownloadCommand.LocalPath' Error:Field validation for 'LocalPath' failed on the 'required' tag",
			NodeTimeout(10*time.Second),
		),
		Entry(
			"should return error if size is below -1",
			downloadCommandFactory(func(cmd *cloudxfer.DownloadCommand) { cmd.FileSize = -2 }),
			"Key: 'DownloadCommand.FileSize' Error:Field validation for 'FileSize' failed on the 'gte' tag",
			NodeTimeout(10*time.Second),
		),
	)
})

var _ = Describe("Enqueuer", func() {
	var (
		transfers *sqlstore.GormTransferStor
		waker     *wakeCounter
		enqueuer  *cloudxfer.Enqueuer
	)

	BeforeEach(func() {
		transfers = sqlstore.NewGormTransferStor(openTestDB(), 3)
		waker = &wakeCounter{}
		enqueuer = cloudxfer.NewEnqueuer(GinkgoLogr, transfers, waker)
	})

	It("should queue a valid upload and wake the dispatcher", func(ctx context.Context) {
		id, err := enqueuer.EnqueueUpload(ctx, uploadCommandFactory(func(cmd *cloudxfer.UploadCommand) {
			cmd.SpaceID = lo.ToPtr("space-1")
			cmd.ForceOverwrite = true
		}))
		Expect(err).ToNot(HaveOccurred())
		Expect(waker.n).To(Equal(1))

		rec, err := transfers.GetByID(ctx, id)
		Expect(err).ToNot(HaveOccurred())
		Expect(rec).To(And(
			HaveField("Kind", record.KindUpload),
			HaveField("Status", record.StatusQueued),
			HaveField("Behavior", record.BehaviorCopy),
			HaveField("ForceOverwrite", true),
			HaveField("SpaceID", HaveValue(Equal("space-1"))),
		))
	}, NodeTimeout(10*time.Second))

	It("should queue a download", func(ctx context.Context) {
		id, err := enqueuer.EnqueueDownload(ctx, downloadCommandFactory(nil))
		Expect(err).ToNot(HaveOccurred())
		rec, err := transfers.GetByID(ctx, id)
		Expect(err).ToNot(HaveOccurred())
		Expect(rec).To(And(
			HaveField("Kind", record.KindDownload),
			HaveField("LocalPath", "/home/alice/report.pdf"),
			HaveField("FileSize", int64(-1)),
		))
	}, NodeTimeout(10*time.Second))

	It("should reject an invalid command without inserting", func(ctx context.Context) {
		_, err := enqueuer.EnqueueUpload(ctx, uploadCommandFactory(func(cmd *cloudxfer.UploadCommand) {
			cmd.RemotePath = ""
		}))
		Expect(err).To(HaveOccurred())
		Expect(waker.n).To(BeZero())
		queued, err := transfers.ListByStatus(ctx, record.StatusQueued)
		Expect(err).ToNot(HaveOccurred())
		Expect(queued).To(BeEmpty())
	}, NodeTimeout(10*time.Second))

	Describe("Retry", func() {
		It("should queue a new attempt of a failed record", func(ctx context.Context) {
			id, err := enqueuer.EnqueueUpload(ctx, uploadCommandFactory(nil))
			Expect(err).ToNot(HaveOccurred())
			Expect(transfers.Update(ctx, id, record.Patch{
				Status:    lo.ToPtr(record.StatusInProgress),
				SessionID: lo.ToPtr("session-1"),
			})).To(Succeed())
			Expect(transfers.Update(ctx, id, record.Terminal(record.ResultUnauthorized, time.Now()))).To(Succeed())

			newID, err := enqueuer.Retry(ctx, id)
			Expect(err).ToNot(HaveOccurred())
			Expect(newID).ToNot(Equal(id))

			rec, err := transfers.GetByID(ctx, newID)
			Expect(err).ToNot(HaveOccurred())
			Expect(rec).To(And(
				HaveField("Status", record.StatusQueued),
				HaveField("RetryOf", HaveValue(Equal(id))),
				HaveField("SessionID", "session-1"),
				HaveField("Attempt", 1),
				HaveField("LastResult", BeNil()),
			))
		}, NodeTimeout(10*time.Second))

		It("should refuse records that did not fail", func(ctx context.Context) {
			id, err := enqueuer.EnqueueUpload(ctx, uploadCommandFactory(nil))
			Expect(err).ToNot(HaveOccurred())
			_, err = enqueuer.Retry(ctx, id)
			Expect(err).To(MatchError(cloudxfer.ErrNotRetryable))
		}, NodeTimeout(10*time.Second))
	})
})
