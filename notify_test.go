package cloudxfer

import (
	"context"
	"errors"
	"time"

	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/record/recordtest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("notifications", func() {
	DescribeTable("eventOf",
		func(result record.Result, kind EventKind, notified bool) {
			rec := recordtest.UploadFactory()
			event, ok := eventOf(*rec, result, nil)
			Expect(ok).To(Equal(notified))
			if notified {
				Expect(event.Kind).To(Equal(kind))
				Expect(event.RemotePath).To(Equal(rec.RemotePath))
				Expect(event.Result).To(Equal(result))
			}
		},
		Entry("success", record.ResultSuccess, EventSucceeded, true),
		Entry("unauthorized asks for credentials", record.ResultUnauthorized, EventCredentialsExpired, true),
		Entry("conflict", record.ResultRemoteConflict, EventFailed, true),
		Entry("cancelled is silent", record.ResultCancelled, EventKind(""), false),
	)

	It("should survive a panicking notifier", func(ctx context.Context) {
		notifier := NotifierFunc(func(context.Context, Event) error {
			panic("boom")
		})
		Expect(func() {
			notifySafely(ctx, GinkgoLogr, notifier, Event{RecordID: 1})
		}).ToNot(Panic())
	}, NodeTimeout(10*time.Second))

	It("should swallow notifier errors", func(ctx context.Context) {
		calls := 0
		notifier := NotifierFunc(func(context.Context, Event) error {
			calls++
			return errors.New("unavailable")
		})
		notifySafely(ctx, GinkgoLogr, notifier, Event{RecordID: 1})
		Expect(calls).To(Equal(1))
	}, NodeTimeout(10*time.Second))

	It("should log every kind of event", func(ctx context.Context) {
		notifier := NewLogNotifier(GinkgoLogr)
		for _, kind := range []EventKind{EventSucceeded, EventFailed, EventCredentialsExpired} {
			Expect(notifier.Notify(ctx, Event{Kind: kind, Err: errors.New("x")})).To(Succeed())
		}
	}, NodeTimeout(10*time.Second))
})
