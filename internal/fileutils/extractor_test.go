package fileutils_test

import (
	"github.com/derektruong/cloudxfer/internal/fileutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Extractor", func() {
	Describe("ExtractFileParts", func() {
		It("should return prefix, file name, and extension", func() {
			prefix, fileName, fileExt, err := fileutils.ExtractFileParts("sample-prefix/sample-object.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(prefix).To(Equal("sample-prefix"))
			Expect(fileName).To(Equal("sample-object"))
			Expect(fileExt).To(Equal("txt"))
		})

		It("should return file name and extension when prefix is not present", func() {
			prefix, fileName, fileExt, err := fileutils.ExtractFileParts("sample-object.txt")
			Expect(err).ToNot(HaveOccurred())
			Expect(prefix).To(Equal(""))
			Expect(fileName).To(Equal("sample-object"))
			Expect(fileExt).To(Equal("txt"))
		})

		It("should accept names without an extension", func() {
			_, fileName, fileExt, err := fileutils.ExtractFileParts("dir/Makefile")
			Expect(err).ToNot(HaveOccurred())
			Expect(fileName).To(Equal("Makefile"))
			Expect(fileExt).To(BeEmpty())
		})

		It("should return error when file path is empty", func() {
			_, _, _, err := fileutils.ExtractFileParts("")
			Expect(err).To(MatchError(fileutils.ErrEmptyPath))
		})
	})

	DescribeTable("CollisionName",
		func(name string, n int, expected string) {
			Expect(fileutils.CollisionName(name, n)).To(Equal(expected))
		},
		Entry("before the extension", "photo.jpg", 1, "photo (1).jpg"),
		Entry("before the last extension only", "archive.tar.gz", 2, "archive.tar (2).gz"),
		Entry("appended without extension", "README", 3, "README (3)"),
		Entry("appended to a dot-file", ".bashrc", 1, ".bashrc (1)"),
	)
})
