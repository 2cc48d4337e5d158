package integration

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	pkgsync "github.com/stacklok/toolhive-mime-registry/internal/sync"
	"github.com/stacklok/toolhive-mime-registry/test-integration/sync/helpers"
)

var _ = Describe("Git Source Integration", Label("git"), func() {
	var (
		tempDir    string
		repo       *helpers.GitRepository
		configFile string
	)

	BeforeEach(func() {
		tempDir = createTempDir("mime-git-test-")
		repo = helpers.NewGitRepository(filepath.Join(tempDir, "nginx"))

		var err error
		configFile, err = helpers.WriteConfigYAML(tempDir, &config.Config{
			DataDir:      filepath.Join(tempDir, "data"),
			SyncInterval: "disabled",
			Sources: []config.SourceConfig{{
				Name: config.FormatNginx,
				URL:  repo.URL(),
				Path: "conf/mime.types",
			}},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanupTempDir(tempDir)
	})

	It("should use the branch head commit as the version token", func() {
		commit := repo.CommitFile("conf/mime.types", nginxDocument)

		registry, err := helpers.NewRegistryTestHelper(ctx, configFile)
		Expect(err).NotTo(HaveOccurred())
		_, err = registry.Manager.Synchronize(ctx, false)
		Expect(err).NotTo(HaveOccurred())

		Expect(registry.Lookup("page.shtml")).To(Equal([]string{"text/html"}))
		Expect(registry.Manager.Snapshot().Versions).To(HaveKeyWithValue(config.FormatNginx, commit))

		By("skipping the clone while the head is unchanged")
		_, err = registry.Manager.Synchronize(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(registry.Manager.LastReport().Sources[config.FormatNginx].Outcome).
			To(Equal(pkgsync.OutcomeUnchanged))

		By("fetching again after a new commit")
		next := repo.CommitFile("conf/mime.types",
			"types {\n    image/avif avif;\n}\n")
		delta, err := registry.Manager.Synchronize(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(delta).To(HaveKeyWithValue("avif", []string{"image/avif"}))
		Expect(registry.Manager.Snapshot().Versions).To(HaveKeyWithValue(config.FormatNginx, next))
	})

	It("should report a fetch failure when the path is missing", func() {
		repo.CommitFile("README.md", "# types live elsewhere\n")

		registry, err := helpers.NewRegistryTestHelper(ctx, configFile)
		Expect(err).NotTo(HaveOccurred())
		_, err = registry.Manager.Synchronize(ctx, false)
		Expect(err).NotTo(HaveOccurred())

		report := registry.Manager.LastReport()
		Expect(report.Sources[config.FormatNginx].Outcome).To(Equal(pkgsync.OutcomeFetchFailed))
		Expect(report.Persisted).To(BeFalse())
	})
})
