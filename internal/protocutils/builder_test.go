package protocutils_test

import (
	"github.com/derektruong/cloudxfer/internal/protocutils"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Builder", func() {
	Describe("BuildURL", func() {
		It("should join and escape path segments", func() {
			u, err := protocutils.BuildURL("https://cloud.example.com/remote.php/dav/files/alice", "/My Photos/a#1.jpg")
			Expect(err).ToNot(HaveOccurred())
			Expect(u).To(Equal("https://cloud.example.com/remote.php/dav/files/alice/My%20Photos/a%231.jpg"))
		})

		It("should tolerate a trailing slash on the base", func() {
			u, err := protocutils.BuildURL("http://localhost:8080/files/", "abc")
			Expect(err).ToNot(HaveOccurred())
			Expect(u).To(Equal("http://localhost:8080/files/abc"))
		})

		It("should return an error if the base is empty", func() {
			_, err := protocutils.BuildURL("", "x")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ParentDir", func() {
		It("should return the parent of nested and root entries", func() {
			Expect(protocutils.ParentDir("/a/b/c.txt")).To(Equal("/a/b"))
			Expect(protocutils.ParentDir("/c.txt")).To(Equal("/"))
			Expect(protocutils.DirWithSlash("/a/b/c.txt")).To(Equal("/a/b/"))
			Expect(protocutils.DirWithSlash("/c.txt")).To(Equal("/"))
		})
	})

	Describe("Ancestors", func() {
		It("should list every directory down to the path", func() {
			Expect(protocutils.Ancestors("/a/b/c")).To(Equal([]string{"/a", "/a/b", "/a/b/c"}))
			Expect(protocutils.Ancestors("/")).To(BeEmpty())
		})
	})
})
