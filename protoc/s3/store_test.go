package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/derektruong/cloudxfer/protoc"
	mock_protoc "github.com/derektruong/cloudxfer/protoc/mock"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("S3 store", func() {
	var (
		mockCtrl *gomock.Controller
		api      *mock_protoc.MockS3API
		store    *Store
		notFound = &types.NotFound{}
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		api = mock_protoc.NewMockS3API(mockCtrl)
		store = NewStore(GinkgoLogr, api, bucketName, "")
	})

	Describe("Stat and Exists", func() {
		It("should describe a file", func(ctx context.Context) {
			modTime := time.Unix(1700000000, 0)
			api.EXPECT().HeadObject(gomock.Any(), keyIs("personal/docs/a.txt")).
				Return(&awss3.HeadObjectOutput{
					ContentLength: aws.Int64(42),
					ETag:          aws.String(`"abc"`),
					Metadata:      map[string]string{"mtime": "1700000000"},
				}, nil)

			stat, err := store.Stat(ctx, "/docs/a.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(stat).To(Equal(protoc.FileStat{
				Path:    "/docs/a.txt",
				Size:    42,
				ModTime: modTime,
				ETag:    `"abc"`,
			}))
		}, NodeTimeout(10*time.Second))

		It("should fall back to the directory marker", func(ctx context.Context) {
			api.EXPECT().HeadObject(gomock.Any(), keyIs("personal/docs")).Return(nil, notFound)
			api.EXPECT().HeadObject(gomock.Any(), keyIs("personal/docs/")).Return(&awss3.HeadObjectOutput{}, nil)

			stat, err := store.Stat(ctx, "/docs")
			Expect(err).ToNot(HaveOccurred())
			Expect(stat.IsDir).To(BeTrue())
		}, NodeTimeout(10*time.Second))

		It("should report a missing entry", func(ctx context.Context) {
			api.EXPECT().HeadObject(gomock.Any(), gomock.Any()).Return(nil, notFound).Times(2)

			exists, err := store.Exists(ctx, "/missing.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeFalse())
		}, NodeTimeout(10*time.Second))

		It("should address spaces under their own prefix", func(ctx context.Context) {
			spaceStore := NewStore(GinkgoLogr, api, bucketName, "space-1")
			api.EXPECT().HeadObject(gomock.Any(), keyIs("spaces/space-1/a.txt")).Return(&awss3.HeadObjectOutput{}, nil)

			exists, err := spaceStore.Exists(ctx, "/a.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(exists).To(BeTrue())
		}, NodeTimeout(10*time.Second))
	})

	Describe("MakeDirectory", func() {
		It("should create the missing markers when recursive", func(ctx context.Context) {
			api.EXPECT().HeadObject(gomock.Any(), keyIs("personal/a/")).Return(&awss3.HeadObjectOutput{}, nil)
			api.EXPECT().HeadObject(gomock.Any(), keyIs("personal/a/b/")).Return(nil, notFound)
			api.EXPECT().PutObject(gomock.Any(), keyIs("personal/a/b/")).Return(&awss3.PutObjectOutput{}, nil)

			Expect(store.MakeDirectory(ctx, "/a/b", true)).To(Succeed())
		}, NodeTimeout(10*time.Second))

		It("should return ErrAlreadyExists for an existing directory", func(ctx context.Context) {
			api.EXPECT().HeadObject(gomock.Any(), keyIs("personal/a/")).Return(&awss3.HeadObjectOutput{}, nil)

			Expect(store.MakeDirectory(ctx, "/a", true)).To(MatchError(protoc.ErrAlreadyExists))
		}, NodeTimeout(10*time.Second))

		It("should return ErrNotFound when the parent is missing", func(ctx context.Context) {
			api.EXPECT().HeadObject(gomock.Any(), gomock.Any()).Return(nil, notFound).Times(2)

			Expect(store.MakeDirectory(ctx, "/a/b", false)).To(MatchError(protoc.ErrNotFound))
		}, NodeTimeout(10*time.Second))
	})

	Describe("Upload and Download", func() {
		It("should put the object with its condition and mod time", func(ctx context.Context) {
			api.EXPECT().PutObject(gomock.Any(), keyIs("personal/a.txt")).
				DoAndReturn(func(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
					Expect(aws.ToString(in.IfMatch)).To(Equal(`"old"`))
					Expect(aws.ToInt64(in.ContentLength)).To(Equal(int64(5)))
					Expect(in.Metadata).To(HaveKeyWithValue("mtime", "1700000000"))
					return &awss3.PutObjectOutput{ETag: aws.String(`"new"`)}, nil
				})

			etag, err := store.Upload(ctx, protoc.UploadRequest{
				Path:    "/a.txt",
				Body:    strings.NewReader("hello"),
				Size:    5,
				ModTime: time.Unix(1700000000, 0),
				IfMatch: `"old"`,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(etag).To(Equal(`"new"`))
		}, NodeTimeout(10*time.Second))

		It("should map a failed condition to ErrPreconditionFailed", func(ctx context.Context) {
			api.EXPECT().PutObject(gomock.Any(), gomock.Any()).
				Return(nil, &smithy.GenericAPIError{Code: "PreconditionFailed"})

			_, err := store.Upload(ctx, protoc.UploadRequest{Path: "/a.txt", Body: strings.NewReader(""), IfMatch: `"x"`})
			Expect(err).To(MatchError(protoc.ErrPreconditionFailed))
		}, NodeTimeout(10*time.Second))

		It("should stream the object body", func(ctx context.Context) {
			api.EXPECT().GetObject(gomock.Any(), keyIs("personal/a.txt")).Return(&awss3.GetObjectOutput{
				Body:          io.NopCloser(strings.NewReader("hello")),
				ContentLength: aws.Int64(5),
				ETag:          aws.String(`"abc"`),
			}, nil)

			body, stat, err := store.Download(ctx, "/a.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(stat.Size).To(Equal(int64(5)))
			data, err := io.ReadAll(body)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(data)).To(Equal("hello"))
		}, NodeTimeout(10*time.Second))
	})

	Describe("Move", func() {
		It("should refuse to overwrite unless asked", func(ctx context.Context) {
			api.EXPECT().HeadObject(gomock.Any(), keyIs("personal/b.txt")).Return(&awss3.HeadObjectOutput{}, nil)

			Expect(store.Move(ctx, "/a.txt", "/b.txt", false)).To(MatchError(protoc.ErrPreconditionFailed))
		}, NodeTimeout(10*time.Second))

		It("should copy then delete the source", func(ctx context.Context) {
			gomock.InOrder(
				api.EXPECT().CopyObject(gomock.Any(), keyIs("personal/b.txt")).
					DoAndReturn(func(_ context.Context, in *awss3.CopyObjectInput, _ ...func(*awss3.Options)) (*awss3.CopyObjectOutput, error) {
						Expect(aws.ToString(in.CopySource)).To(Equal("test-bucket/personal/a%20b.txt"))
						return &awss3.CopyObjectOutput{}, nil
					}),
				api.EXPECT().DeleteObjects(gomock.Any(), gomock.Any()).Return(&awss3.DeleteObjectsOutput{}, nil),
			)

			Expect(store.Move(ctx, "/a b.txt", "/b.txt", true)).To(Succeed())
		}, NodeTimeout(10*time.Second))
	})

	Describe("Chunked upload", func() {
		const folderID = "folder-1"

		listChunks := func(sizes ...int64) *gomock.Call {
			contents := []types.Object{{Key: aws.String("uploads/folder-1/"), Size: aws.Int64(0)}}
			for i, size := range sizes {
				contents = append(contents, types.Object{
					Key:  aws.String(store.chunkKey(folderID, i)),
					Size: aws.Int64(size),
				})
			}
			return api.EXPECT().ListObjectsV2(gomock.Any(), keyIs("uploads/folder-1/"), gomock.Any()).
				Return(&awss3.ListObjectsV2Output{Contents: contents}, nil)
		}

		It("should create the chunk folder once", func(ctx context.Context) {
			api.EXPECT().HeadObject(gomock.Any(), keyIs("uploads/folder-1/")).Return(nil, notFound)
			api.EXPECT().PutObject(gomock.Any(), keyIs("uploads/folder-1/")).Return(&awss3.PutObjectOutput{}, nil)
			Expect(store.CreateChunkFolder(ctx, folderID)).To(Succeed())

			api.EXPECT().HeadObject(gomock.Any(), keyIs("uploads/folder-1/")).Return(&awss3.HeadObjectOutput{}, nil)
			Expect(store.CreateChunkFolder(ctx, folderID)).To(MatchError(protoc.ErrAlreadyExists))
		}, NodeTimeout(10*time.Second))

		It("should store chunks under ordered names", func(ctx context.Context) {
			api.EXPECT().PutObject(gomock.Any(), keyIs("uploads/folder-1/00000003")).Return(&awss3.PutObjectOutput{}, nil)
			Expect(store.UploadChunk(ctx, folderID, 3, strings.NewReader("x"), 1)).To(Succeed())
		}, NodeTimeout(10*time.Second))

		It("should assemble several chunks with a multipart copy", func(ctx context.Context) {
			listChunks(5, 3)
			api.EXPECT().CreateMultipartUpload(gomock.Any(), keyIs("personal/big.bin")).
				Return(&awss3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil)
			api.EXPECT().UploadPartCopy(gomock.Any(), keyIs("personal/big.bin")).
				DoAndReturn(func(_ context.Context, in *awss3.UploadPartCopyInput, _ ...func(*awss3.Options)) (*awss3.UploadPartCopyOutput, error) {
					return &awss3.UploadPartCopyOutput{CopyPartResult: &types.CopyPartResult{
						ETag: aws.String(aws.ToString(in.CopySource)),
					}}, nil
				}).Times(2)
			api.EXPECT().CompleteMultipartUpload(gomock.Any(), keyIs("personal/big.bin")).
				DoAndReturn(func(_ context.Context, in *awss3.CompleteMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
					Expect(in.MultipartUpload.Parts).To(HaveLen(2))
					Expect(aws.ToInt32(in.MultipartUpload.Parts[0].PartNumber)).To(Equal(int32(1)))
					Expect(aws.ToString(in.MultipartUpload.Parts[0].ETag)).To(HaveSuffix("00000000"))
					Expect(aws.ToString(in.MultipartUpload.Parts[1].ETag)).To(HaveSuffix("00000001"))
					return &awss3.CompleteMultipartUploadOutput{ETag: aws.String(`"assembled"`)}, nil
				})
			listChunks(5, 3)
			api.EXPECT().DeleteObjects(gomock.Any(), gomock.Any()).Return(&awss3.DeleteObjectsOutput{}, nil)

			etag, err := store.AssembleChunks(ctx, protoc.AssembleRequest{
				FolderID: folderID,
				Target:   "/big.bin",
				Size:     8,
			})
			Expect(err).ToNot(HaveOccurred())
			Expect(etag).To(Equal(`"assembled"`))
		}, NodeTimeout(10*time.Second))

		It("should abort the multipart upload when a part fails", func(ctx context.Context) {
			listChunks(5, 3)
			api.EXPECT().CreateMultipartUpload(gomock.Any(), gomock.Any()).
				Return(&awss3.CreateMultipartUploadOutput{UploadId: aws.String("upload-1")}, nil)
			api.EXPECT().UploadPartCopy(gomock.Any(), gomock.Any()).
				Return(nil, errors.New("connection reset by peer")).MinTimes(1).MaxTimes(2)
			api.EXPECT().AbortMultipartUpload(gomock.Any(), gomock.Any()).Return(&awss3.AbortMultipartUploadOutput{}, nil)

			_, err := store.AssembleChunks(ctx, protoc.AssembleRequest{FolderID: folderID, Target: "/big.bin", Size: 8})
			Expect(err).To(MatchError(protoc.ErrNetworkUnreachable))
		}, NodeTimeout(10*time.Second))

		It("should reject chunks that do not add up to the size", func(ctx context.Context) {
			listChunks(5)

			_, err := store.AssembleChunks(ctx, protoc.AssembleRequest{FolderID: folderID, Target: "/big.bin", Size: 8})
			Expect(err).To(MatchError(ContainSubstring("expected 8")))
		}, NodeTimeout(10*time.Second))

		It("should check the target etag before assembling", func(ctx context.Context) {
			api.EXPECT().HeadObject(gomock.Any(), keyIs("personal/big.bin")).
				Return(&awss3.HeadObjectOutput{ETag: aws.String(`"changed"`)}, nil)

			_, err := store.AssembleChunks(ctx, protoc.AssembleRequest{
				FolderID: folderID,
				Target:   "/big.bin",
				Size:     8,
				IfMatch:  `"seen"`,
			})
			Expect(err).To(MatchError(protoc.ErrPreconditionFailed))
		}, NodeTimeout(10*time.Second))

		It("should list the chunk folders", func(ctx context.Context) {
			api.EXPECT().ListObjectsV2(gomock.Any(), keyIs("uploads/"), gomock.Any()).Return(&awss3.ListObjectsV2Output{
				CommonPrefixes: []types.CommonPrefix{{Prefix: aws.String("uploads/folder-1/")}},
			}, nil)
			lastModified := time.Now().Add(-time.Hour).UTC()
			api.EXPECT().HeadObject(gomock.Any(), keyIs("uploads/folder-1/")).
				Return(&awss3.HeadObjectOutput{LastModified: aws.Time(lastModified)}, nil)

			folders, err := store.ListChunkFolders(ctx)
			Expect(err).ToNot(HaveOccurred())
			Expect(folders).To(Equal([]protoc.ChunkFolder{{ID: folderID, ModTime: lastModified}}))
		}, NodeTimeout(10*time.Second))
	})

	Describe("error mapping", func() {
		It("should map access errors to ErrUnauthorized", func(ctx context.Context) {
			api.EXPECT().GetObject(gomock.Any(), gomock.Any()).Return(nil, &smithy.GenericAPIError{Code: "AccessDenied"})

			_, _, err := store.Download(ctx, "/a.txt")
			Expect(err).To(MatchError(protoc.ErrUnauthorized))
		}, NodeTimeout(10*time.Second))

		It("should keep context cancellation", func(ctx context.Context) {
			api.EXPECT().GetObject(gomock.Any(), gomock.Any()).Return(nil, context.Canceled)

			_, _, err := store.Download(ctx, "/a.txt")
			Expect(err).To(MatchError(context.Canceled))
			Expect(err).ToNot(MatchError(protoc.ErrNetworkUnreachable))
		}, NodeTimeout(10*time.Second))
	})
})
