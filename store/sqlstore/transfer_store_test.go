package sqlstore_test

import (
	"context"
	"time"

	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/record/recordtest"
	"github.com/derektruong/cloudxfer/store"
	"github.com/derektruong/cloudxfer/store/sqlstore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
)

var _ = Describe("GormTransferStor", func() {
	var stor *sqlstore.GormTransferStor

	BeforeEach(func() {
		stor = sqlstore.NewGormTransferStor(openTestDB(), 3)
	})

	Describe("Insert", func() {
		It("should assign increasing ids", func(ctx context.Context) {
			first, second := recordtest.UploadFactory(), recordtest.UploadFactory()
			Expect(stor.Insert(ctx, first)).To(Succeed())
			Expect(stor.Insert(ctx, second)).To(Succeed())
			Expect(first.ID).To(BeNumerically(">", 0))
			Expect(second.ID).To(BeNumerically(">", first.ID))

			got, err := stor.GetByID(ctx, first.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(HaveField("RemotePath", first.RemotePath))
			Expect(got).To(HaveField("Status", record.StatusQueued))
			Expect(got).To(HaveField("Behavior", record.BehaviorCopy))
		}, NodeTimeout(10*time.Second))

		It("should never hold more than the success cap", func(ctx context.Context) {
			base := time.Now().Add(-time.Hour)
			var ids []int64
			for i := range store.MaxSucceededRecords + 5 {
				rec := recordtest.SucceededFactory(base.Add(time.Duration(i) * time.Minute))
				Expect(stor.Insert(ctx, rec)).To(Succeed())
				ids = append(ids, rec.ID)

				succeeded, err := stor.ListByStatus(ctx, record.StatusSucceeded)
				Expect(err).ToNot(HaveOccurred())
				Expect(len(succeeded)).To(BeNumerically("<=", store.MaxSucceededRecords))
			}

			succeeded, err := stor.ListByStatus(ctx, record.StatusSucceeded)
			Expect(err).ToNot(HaveOccurred())
			Expect(succeeded).To(HaveLen(store.MaxSucceededRecords))
			kept := lo.Map(succeeded, func(r record.Record, _ int) int64 { return r.ID })
			// the five oldest completions were evicted
			Expect(kept).To(ConsistOf(ids[5:]))
		}, NodeTimeout(30*time.Second))

		It("should evict by completion time, not by insertion order", func(ctx context.Context) {
			now := time.Now()
			oldest := recordtest.SucceededFactory(now.Add(-48 * time.Hour))
			for i := range store.MaxSucceededRecords {
				Expect(stor.Insert(ctx, recordtest.SucceededFactory(now.Add(-time.Duration(i)*time.Minute)))).To(Succeed())
				if i == 0 {
					Expect(stor.Insert(ctx, oldest)).To(Succeed())
				}
			}

			_, err := stor.GetByID(ctx, oldest.ID)
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		}, NodeTimeout(30*time.Second))

		It("should keep queued and failed records regardless of the cap", func(ctx context.Context) {
			queued := recordtest.UploadFactory()
			Expect(stor.Insert(ctx, queued)).To(Succeed())
			for range store.MaxSucceededRecords + 1 {
				Expect(stor.Insert(ctx, recordtest.SucceededFactory(time.Now()))).To(Succeed())
			}
			_, err := stor.GetByID(ctx, queued.ID)
			Expect(err).ToNot(HaveOccurred())
		}, NodeTimeout(30*time.Second))
	})

	Describe("Update", func() {
		var rec *record.Record

		BeforeEach(func(ctx context.Context) {
			rec = recordtest.UploadFactory()
			Expect(stor.Insert(ctx, rec)).To(Succeed())
		})

		It("should move a record through its lifecycle", func(ctx context.Context) {
			Expect(stor.Update(ctx, rec.ID, record.Patch{Status: lo.ToPtr(record.StatusInProgress)})).To(Succeed())
			Expect(stor.Update(ctx, rec.ID, record.Patch{SessionID: lo.ToPtr("abc")})).To(Succeed())
			end := time.Now()
			Expect(stor.Update(ctx, rec.ID, record.Terminal(record.ResultSuccess, end))).To(Succeed())

			got, err := stor.GetByID(ctx, rec.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(got).To(HaveField("Status", record.StatusSucceeded))
			Expect(got).To(HaveField("SessionID", "abc"))
			Expect(got.LastResult).To(HaveValue(Equal(record.ResultSuccess)))
			Expect(got.TransferEndTimestamp).To(HaveValue(BeTemporally("~", end, time.Second)))
		}, NodeTimeout(10*time.Second))

		It("should reject skipping IN_PROGRESS", func(ctx context.Context) {
			err := stor.Update(ctx, rec.ID, record.Terminal(record.ResultSuccess, time.Now()))
			Expect(err).To(MatchError(store.ErrInvalidTransition))
		}, NodeTimeout(10*time.Second))

		It("should reject a second claim of the same record", func(ctx context.Context) {
			Expect(stor.Update(ctx, rec.ID, record.Patch{Status: lo.ToPtr(record.StatusInProgress)})).To(Succeed())
			Expect(stor.Update(ctx, rec.ID, record.Terminal(record.ResultUnknown, time.Now()))).To(Succeed())
			err := stor.Update(ctx, rec.ID, record.Patch{Status: lo.ToPtr(record.StatusInProgress)})
			Expect(err).To(MatchError(store.ErrInvalidTransition))
		}, NodeTimeout(10*time.Second))

		It("should return not found for unknown ids", func(ctx context.Context) {
			err := stor.Update(ctx, rec.ID+100, record.Patch{SessionID: lo.ToPtr("x")})
			Expect(err).To(MatchError(store.ErrRecordNotFound))
		}, NodeTimeout(10*time.Second))

		It("should trim successes when an update completes a record", func(ctx context.Context) {
			for range store.MaxSucceededRecords {
				Expect(stor.Insert(ctx, recordtest.SucceededFactory(time.Now().Add(-time.Hour)))).To(Succeed())
			}
			Expect(stor.Update(ctx, rec.ID, record.Patch{Status: lo.ToPtr(record.StatusInProgress)})).To(Succeed())
			Expect(stor.Update(ctx, rec.ID, record.Terminal(record.ResultSuccess, time.Now()))).To(Succeed())

			succeeded, err := stor.ListByStatus(ctx, record.StatusSucceeded)
			Expect(err).ToNot(HaveOccurred())
			Expect(succeeded).To(HaveLen(store.MaxSucceededRecords))
			Expect(succeeded).To(ContainElement(HaveField("ID", rec.ID)))
		}, NodeTimeout(30*time.Second))
	})

	Describe("ListByStatus", func() {
		It("should return matching records oldest first", func(ctx context.Context) {
			a, b, c := recordtest.UploadFactory(), recordtest.UploadFactory(), recordtest.UploadFactory()
			for _, r := range []*record.Record{a, b, c} {
				Expect(stor.Insert(ctx, r)).To(Succeed())
			}
			Expect(stor.Update(ctx, b.ID, record.Patch{Status: lo.ToPtr(record.StatusInProgress)})).To(Succeed())

			queued, err := stor.ListByStatus(ctx, record.StatusQueued)
			Expect(err).ToNot(HaveOccurred())
			Expect(queued).To(HaveLen(2))
			Expect(queued[0].ID).To(Equal(a.ID))
			Expect(queued[1].ID).To(Equal(c.ID))
		}, NodeTimeout(10*time.Second))
	})
})
