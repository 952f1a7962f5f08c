package cloudxfer_test

import (
	"context"
	"time"

	"github.com/derektruong/cloudxfer"
	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/protoc/local"
	mock_protoc "github.com/derektruong/cloudxfer/protoc/mock"
	"github.com/derektruong/cloudxfer/record"
	"github.com/derektruong/cloudxfer/record/recordtest"
	"github.com/derektruong/cloudxfer/store/sqlstore"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"go.uber.org/mock/gomock"
)

var _ = Describe("Reaper", func() {
	var (
		transfers *sqlstore.GormTransferStor
		registry  *protoc.Registry
		chunkFs   afero.Fs
		plainFs   afero.Fs
	)

	chunkFolder := func(fs afero.Fs, id string, age time.Duration) {
		folder := "/uploads/" + id
		Expect(fs.MkdirAll(folder, 0755)).To(Succeed())
		Expect(afero.WriteFile(fs, folder+"/00000000", []byte("chunk"), 0644)).To(Succeed())
		modTime := time.Now().Add(-age)
		Expect(fs.Chtimes(folder, modTime, modTime)).To(Succeed())
	}

	BeforeEach(func() {
		transfers = sqlstore.NewGormTransferStor(openTestDB(), 3)
		chunkFs = afero.NewMemMapFs()
		plainFs = afero.NewMemMapFs()
		registry = protoc.NewRegistry()
		registry.RegisterClient("alice", local.NewIOWithFs(chunkFs, "/", true))
		registry.RegisterClient("bob", local.NewIOWithFs(plainFs, "/", false))
	})

	It("should delete abandoned chunk folders only", func(ctx context.Context) {
		chunkFolder(chunkFs, "abandoned", 48*time.Hour)
		chunkFolder(chunkFs, "recent", time.Hour)
		chunkFolder(chunkFs, "running", 48*time.Hour)
		chunkFolder(plainFs, "unsupported", 48*time.Hour)

		running := recordtest.UploadFactory()
		running.AccountName = "alice"
		Expect(transfers.Insert(ctx, running)).To(Succeed())
		Expect(transfers.Update(ctx, running.ID, record.Patch{
			Status:    lo.ToPtr(record.StatusInProgress),
			SessionID: lo.ToPtr("running"),
		})).To(Succeed())

		reaper := cloudxfer.NewReaper(GinkgoLogr, transfers, registry)
		Expect(reaper.Sweep(ctx)).To(Equal(1))

		Expect(afero.DirExists(chunkFs, "/uploads/abandoned")).To(BeFalse())
		Expect(afero.DirExists(chunkFs, "/uploads/recent")).To(BeTrue())
		Expect(afero.DirExists(chunkFs, "/uploads/running")).To(BeTrue())
		Expect(afero.DirExists(plainFs, "/uploads/unsupported")).To(BeTrue())
	}, NodeTimeout(10*time.Second))

	It("should honor the configured TTL", func(ctx context.Context) {
		chunkFolder(chunkFs, "hour-old", 2*time.Hour)

		reaper := cloudxfer.NewReaper(GinkgoLogr, transfers, registry, cloudxfer.WithScratchTTL(time.Hour))
		Expect(reaper.Sweep(ctx)).To(Equal(1))
		Expect(afero.DirExists(chunkFs, "/uploads/hour-old")).To(BeFalse())
	}, NodeTimeout(10*time.Second))

	It("should list the uploads area once per account", func(ctx context.Context) {
		mockCtrl := gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		client := mock_protoc.NewMockClient(mockCtrl)
		remote := mock_protoc.NewMockRemoteStore(mockCtrl)
		client.EXPECT().GetCapabilities().Return(protoc.Capabilities{Chunking: true}).AnyTimes()
		client.EXPECT().GetRemoteStore(gomock.Any(), "").Return(remote).Times(1)
		remote.EXPECT().ListChunkFolders(gomock.Any()).Return([]protoc.ChunkFolder{
			{ID: "abandoned", ModTime: time.Now().Add(-48 * time.Hour)},
			{ID: "recent", ModTime: time.Now()},
		}, nil).Times(1)
		remote.EXPECT().DeleteChunkFolder(gomock.Any(), "abandoned").Return(nil)
		registry = protoc.NewRegistry()
		registry.RegisterClient("carol", client)

		for _, space := range []string{"team-a", "team-b", "team-c"} {
			queued := recordtest.UploadFactory()
			queued.AccountName = "carol"
			queued.SpaceID = lo.ToPtr(space)
			Expect(transfers.Insert(ctx, queued)).To(Succeed())
		}

		reaper := cloudxfer.NewReaper(GinkgoLogr, transfers, registry)
		Expect(reaper.Sweep(ctx)).To(Equal(1))
	}, NodeTimeout(10*time.Second))

	It("should sweep periodically until stopped", func(ctx context.Context) {
		reaper := cloudxfer.NewReaper(GinkgoLogr, transfers, registry,
			cloudxfer.WithReapInterval(10*time.Millisecond))
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			done <- reaper.Run(runCtx)
		}()

		chunkFolder(chunkFs, "late", 48*time.Hour)
		Eventually(func() (bool, error) {
			return afero.DirExists(chunkFs, "/uploads/late")
		}).Should(BeFalse())

		cancel()
		Eventually(done).Should(Receive(BeNil()))
	}, NodeTimeout(10*time.Second))
})
