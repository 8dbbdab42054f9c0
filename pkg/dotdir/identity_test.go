package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opshelm/worklog/pkg/dotdir"
)

var _ = Describe("identity", func() {
	var tmpDir string
	var m *dotdir.Manager

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		m = dotdir.NewManager()
	})

	Describe("LoadIdentity", func() {
		It("returns nil when no identity has been saved", func() {
			identity, err := m.LoadIdentity(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(identity).To(BeNil())
		})

		It("round-trips a saved identity", func() {
			saved := &dotdir.Identity{Agent: "claude", System: "buildbox"}
			Expect(m.SaveIdentity(saved, tmpDir)).To(Succeed())

			loaded, err := m.LoadIdentity(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).NotTo(BeNil())
			Expect(loaded.Agent).To(Equal("claude"))
			Expect(loaded.System).To(Equal("buildbox"))
		})

		It("returns an error for malformed identity files", func() {
			path := filepath.Join(tmpDir, "identity.json")
			Expect(os.WriteFile(path, []byte("{not json"), 0o644)).To(Succeed())

			_, err := m.LoadIdentity(tmpDir)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("SaveIdentity", func() {
		It("rejects a nil identity", func() {
			Expect(m.SaveIdentity(nil, tmpDir)).NotTo(Succeed())
		})
	})

	Describe("ClearIdentity", func() {
		It("removes a saved identity", func() {
			Expect(m.SaveIdentity(&dotdir.Identity{Agent: "claude"}, tmpDir)).To(Succeed())
			Expect(m.ClearIdentity(tmpDir)).To(Succeed())

			identity, err := m.LoadIdentity(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(identity).To(BeNil())
		})

		It("is a no-op when nothing is saved", func() {
			Expect(m.ClearIdentity(tmpDir)).To(Succeed())
		})
	})
})
