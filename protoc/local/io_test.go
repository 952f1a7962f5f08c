package local_test

import (
	"errors"

	"github.com/derektruong/cloudxfer/protoc"
	"github.com/derektruong/cloudxfer/protoc/local"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/afero"
)

var _ = Describe("Local IO APIs", func() {
	var io *local.IO

	BeforeEach(func() {
		io = local.NewIOWithFs(afero.NewMemMapFs(), "/srv/cloud", true)
	})

	It("should panic for GetSessionAPI", func() {
		Expect(func() {
			io.GetSessionAPI(GinkgoLogr, "")
		}).Should(PanicWith(MatchError(errors.ErrUnsupported)))
	})

	It("should advertise chunking only", func() {
		Expect(io.GetCapabilities()).To(Equal(protoc.Capabilities{Chunking: true}))
	})

	It("should return correct io credential", func() {
		Expect(io.GetCredential()).To(Equal(*io))
	})

	It("should derive a stable connection ID from the root", func() {
		other := local.NewIOWithFs(afero.NewMemMapFs(), "/srv/cloud", false)
		Expect(io.GetConnectionID()).ToNot(BeEmpty())
		Expect(io.GetConnectionID()).To(Equal(other.GetConnectionID()))
	})
})
