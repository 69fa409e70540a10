package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/cortex/pkg/dotdir"
)

var _ = Describe("Manager.Target", func() {
	var (
		root string
		m    *dotdir.Manager
	)

	// chdir moves into dir until the test ends.
	chdir := func(dir string) {
		orig, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(dir)).To(Succeed())
		DeferCleanup(os.Chdir, orig)
	}

	BeforeEach(func() {
		var err error
		// EvalSymlinks keeps comparisons stable where the temp dir is a
		// symlink, as on macOS.
		root, err = filepath.EvalSymlinks(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		GinkgoT().Setenv(dotdir.EnvHome, "")
		GinkgoT().Setenv("HOME", filepath.Join(root, "home"))
		m = dotdir.NewManager()
	})

	It("creates and returns the override", func() {
		dir := filepath.Join(root, "a", "b")

		got, err := m.Target(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(dir))
		Expect(dir).To(BeADirectory())
	})

	It("prefers the override over CORTEX_HOME and a local .cortex", func() {
		Expect(os.Mkdir(filepath.Join(root, ".cortex"), 0o700)).To(Succeed())
		chdir(root)
		GinkgoT().Setenv(dotdir.EnvHome, filepath.Join(root, "env"))

		got, err := m.Target(filepath.Join(root, "override"))
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(filepath.Join(root, "override")))
	})

	It("uses CORTEX_HOME before a local .cortex", func() {
		Expect(os.Mkdir(filepath.Join(root, ".cortex"), 0o700)).To(Succeed())
		chdir(root)
		GinkgoT().Setenv(dotdir.EnvHome, filepath.Join(root, "env"))

		got, err := m.Target("")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(filepath.Join(root, "env")))
	})

	It("finds .cortex in a parent of the working directory", func() {
		Expect(os.Mkdir(filepath.Join(root, ".cortex"), 0o700)).To(Succeed())
		nested := filepath.Join(root, "src", "pkg")
		Expect(os.MkdirAll(nested, 0o700)).To(Succeed())
		chdir(nested)

		got, err := m.Target("")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(filepath.Join(root, ".cortex")))
	})

	It("falls back to a created ~/.cortex", func() {
		empty := filepath.Join(root, "empty")
		Expect(os.Mkdir(empty, 0o700)).To(Succeed())
		chdir(empty)

		got, err := m.Target("")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(filepath.Join(root, "home", ".cortex")))
		Expect(got).To(BeADirectory())
	})
})
