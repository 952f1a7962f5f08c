package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/derektruong/cloudxfer/protoc"
	mock_protoc "github.com/derektruong/cloudxfer/protoc/mock"
	"go.uber.org/mock/gomock"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Calculate part size", func() {
	var limits PartLimits

	BeforeEach(func() {
		limits = PartLimits{}.withDefaults()
	})

	It("should calculate optimal part size", func() {
		highestApplicablePartSize := limits.MaxObjectSize / limits.MaxMultipartParts
		if limits.MaxObjectSize%limits.MaxMultipartParts > 0 {
			highestApplicablePartSize++
		}
		remainder := limits.MaxObjectSize % highestApplicablePartSize

		// some sizes are the same number of bytes described two ways
		testcases := []int64{
			0,
			1,

			limits.PreferredPartSize - 1,
			limits.PreferredPartSize,
			limits.PreferredPartSize + 1,

			limits.MinPartSize - 1,
			limits.MinPartSize,
			limits.MinPartSize + 1,

			limits.MinPartSize*(limits.MaxMultipartParts-1) - 1,
			limits.MinPartSize * (limits.MaxMultipartParts - 1),
			limits.MinPartSize*(limits.MaxMultipartParts-1) + 1,

			limits.MinPartSize*limits.MaxMultipartParts - 1,
			limits.MinPartSize * limits.MaxMultipartParts,
			limits.MinPartSize*limits.MaxMultipartParts + 1,

			(highestApplicablePartSize-1)*limits.MaxMultipartParts - 1,
			(highestApplicablePartSize - 1) * limits.MaxMultipartParts,
			(highestApplicablePartSize-1)*limits.MaxMultipartParts + 1,

			highestApplicablePartSize*(limits.MaxMultipartParts-1) + remainder - 1,
			highestApplicablePartSize*(limits.MaxMultipartParts-1) + remainder,
			highestApplicablePartSize*(limits.MaxMultipartParts-1) + remainder + 1,

			limits.MaxObjectSize - 1,
			limits.MaxObjectSize,
			limits.MaxObjectSize + 1,

			limits.MaxPartSize*limits.MaxMultipartParts - 1,
			limits.MaxPartSize * limits.MaxMultipartParts,
		}
		for _, size := range testcases {
			assertCalculatedPartSize(limits, size)
		}
	})

	It("should calculate optimal part size with all upload sizes", func() {
		limits = PartLimits{
			MinPartSize:       5,
			MaxPartSize:       5 * 1024,
			PreferredPartSize: 10,
			MaxMultipartParts: 1000,
		}.withDefaults()
		limits.MaxObjectSize = limits.MaxPartSize * limits.MaxMultipartParts

		for size := int64(0); size <= limits.MaxObjectSize; size++ {
			assertCalculatedPartSize(limits, size)
		}
	})

	It("should fail when the part would exceed the max part size", func() {
		size := limits.MaxPartSize*limits.MaxMultipartParts + 1

		optimalPartSize, err := limits.calcOptimalPartSize(size)
		Expect(err).To(MatchError(fmt.Sprintf(
			"calcOptimalPartSize: to upload %v bytes optimalPartSize %v must exceed MaxPartSize %v",
			size, optimalPartSize, limits.MaxPartSize,
		)))
	})
})

func assertCalculatedPartSize(limits PartLimits, size int64) {
	optimalPartSize, err := limits.calcOptimalPartSize(size)
	Expect(err).ToNot(HaveOccurred(), "size %d", size)

	equalParts := size / optimalPartSize
	lastPartSize := size % optimalPartSize
	prelude := fmt.Sprintf("size %d, %d parts of size %d, last part %d: ", size, equalParts, optimalPartSize, lastPartSize)

	Expect(optimalPartSize).To(BeNumerically(">=", limits.MinPartSize), prelude+"below MinPartSize")
	Expect(optimalPartSize).To(BeNumerically("<=", limits.MaxPartSize), prelude+"above MaxPartSize")
	Expect(lastPartSize == 0 && equalParts > limits.MaxMultipartParts).To(BeFalse(), prelude+"too many parts")
	Expect(lastPartSize > 0 && equalParts > limits.MaxMultipartParts-1).To(BeFalse(), prelude+"too many parts")
	Expect(lastPartSize).To(BeNumerically("<=", optimalPartSize), prelude+"last part above part size")
	Expect(size).To(BeNumerically("<=", optimalPartSize*limits.MaxMultipartParts), prelude+"does not fit")
}

var _ = Describe("S3 multipart upload", func() {
	const uploadID = "upload-1"
	var (
		mockCtrl *gomock.Controller
		api      *mock_protoc.MockS3API
		store    *Store
		content  []byte

		mu       sync.Mutex
		received map[int32][]byte
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		DeferCleanup(mockCtrl.Finish)
		api = mock_protoc.NewMockS3API(mockCtrl)
		store = NewStore(GinkgoLogr, api, bucketName, "", WithPartLimits(PartLimits{
			MinPartSize:        4,
			PreferredPartSize:  10,
			MaxBufferedParts:   2,
			TemporaryDirectory: GinkgoT().TempDir(),
		}))
		content = []byte(gofakeit.LetterN(35))
		received = make(map[int32][]byte)
	})

	acceptPart := func(_ context.Context, in *awss3.UploadPartInput, _ ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
		body, err := io.ReadAll(in.Body)
		if err != nil {
			return nil, err
		}
		if int64(len(body)) != aws.ToInt64(in.ContentLength) {
			return nil, fmt.Errorf("part %d has %d bytes", aws.ToInt32(in.PartNumber), len(body))
		}
		mu.Lock()
		received[aws.ToInt32(in.PartNumber)] = body
		mu.Unlock()
		return &awss3.UploadPartOutput{ETag: aws.String(fmt.Sprintf(`"part-%d"`, aws.ToInt32(in.PartNumber)))}, nil
	}

	uploadRequest := func() protoc.UploadRequest {
		return protoc.UploadRequest{
			Path:    "/videos/big.mp4",
			Body:    bytes.NewReader(content),
			Size:    int64(len(content)),
			ModTime: time.Unix(1700000000, 0),
		}
	}

	It("should upload a large file in parts", func(ctx context.Context) {
		api.EXPECT().CreateMultipartUpload(gomock.Any(), keyIs("personal/videos/big.mp4")).
			Return(&awss3.CreateMultipartUploadOutput{UploadId: aws.String(uploadID)}, nil)
		api.EXPECT().UploadPart(gomock.Any(), keyIs("personal/videos/big.mp4")).
			DoAndReturn(acceptPart).Times(4)
		api.EXPECT().CompleteMultipartUpload(gomock.Any(), keyIs("personal/videos/big.mp4")).
			DoAndReturn(func(_ context.Context, in *awss3.CompleteMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.CompleteMultipartUploadOutput, error) {
				Expect(aws.ToString(in.UploadId)).To(Equal(uploadID))
				Expect(in.MultipartUpload.Parts).To(HaveLen(4))
				for i, part := range in.MultipartUpload.Parts {
					Expect(aws.ToInt32(part.PartNumber)).To(BeEquivalentTo(i + 1))
					Expect(aws.ToString(part.ETag)).To(Equal(fmt.Sprintf(`"part-%d"`, i+1)))
				}
				return &awss3.CompleteMultipartUploadOutput{ETag: aws.String(`"multi-4"`)}, nil
			})

		etag, err := store.Upload(ctx, uploadRequest())
		Expect(err).ToNot(HaveOccurred())
		Expect(etag).To(Equal(`"multi-4"`))

		var assembled []byte
		for n := int32(1); n <= 4; n++ {
			assembled = append(assembled, received[n]...)
		}
		Expect(assembled).To(Equal(content))
	}, NodeTimeout(10*time.Second))

	It("should put a file below the preferred part size in one request", func(ctx context.Context) {
		content = content[:10]
		api.EXPECT().PutObject(gomock.Any(), keyIs("personal/videos/big.mp4")).
			Return(&awss3.PutObjectOutput{ETag: aws.String(`"single"`)}, nil)

		Expect(store.Upload(ctx, uploadRequest())).To(Equal(`"single"`))
	}, NodeTimeout(10*time.Second))

	It("should put a conditional write in one request", func(ctx context.Context) {
		req := uploadRequest()
		req.IfMatch = `"old"`
		api.EXPECT().PutObject(gomock.Any(), keyIs("personal/videos/big.mp4")).
			DoAndReturn(func(_ context.Context, in *awss3.PutObjectInput, _ ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
				Expect(aws.ToString(in.IfMatch)).To(Equal(`"old"`))
				return &awss3.PutObjectOutput{ETag: aws.String(`"new"`)}, nil
			})

		Expect(store.Upload(ctx, req)).To(Equal(`"new"`))
	}, NodeTimeout(10*time.Second))

	It("should abort the upload when a part fails", func(ctx context.Context) {
		api.EXPECT().CreateMultipartUpload(gomock.Any(), gomock.Any()).
			Return(&awss3.CreateMultipartUploadOutput{UploadId: aws.String(uploadID)}, nil)
		api.EXPECT().UploadPart(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, in *awss3.UploadPartInput, opts ...func(*awss3.Options)) (*awss3.UploadPartOutput, error) {
				if aws.ToInt32(in.PartNumber) == 2 {
					return nil, &smithy.GenericAPIError{Code: "AccessDenied", Message: "denied"}
				}
				return acceptPart(ctx, in, opts...)
			}).
			MinTimes(1)
		api.EXPECT().AbortMultipartUpload(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, in *awss3.AbortMultipartUploadInput, _ ...func(*awss3.Options)) (*awss3.AbortMultipartUploadOutput, error) {
				Expect(aws.ToString(in.UploadId)).To(Equal(uploadID))
				return &awss3.AbortMultipartUploadOutput{}, nil
			})

		_, err := store.Upload(ctx, uploadRequest())
		Expect(err).To(MatchError(protoc.ErrUnauthorized))
	}, NodeTimeout(10*time.Second))

	It("should abort the upload when the body is shorter than announced", func(ctx context.Context) {
		req := uploadRequest()
		req.Size = int64(len(content)) + 5
		api.EXPECT().CreateMultipartUpload(gomock.Any(), gomock.Any()).
			Return(&awss3.CreateMultipartUploadOutput{UploadId: aws.String(uploadID)}, nil)
		api.EXPECT().UploadPart(gomock.Any(), gomock.Any()).DoAndReturn(acceptPart).Times(4)
		api.EXPECT().AbortMultipartUpload(gomock.Any(), gomock.Any()).
			Return(nil, &types.NoSuchUpload{})

		_, err := store.Upload(ctx, req)
		Expect(err).To(MatchError(ContainSubstring("read 35 bytes, expected 40")))
	}, NodeTimeout(10*time.Second))
})
