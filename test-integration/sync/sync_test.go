package integration

import (
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	pkgsync "github.com/stacklok/toolhive-mime-registry/internal/sync"
	"github.com/stacklok/toolhive-mime-registry/test-integration/sync/helpers"
)

const (
	apacheDocument = "# MIME type\t\t\tExtensions\nimage/jpeg\t\t\tjpeg jpg jpe\ntext/plain\t\t\ttxt text\n"
	debianDocument = "text/plain\t\t\t\t\ttxt asc\napplication/json\t\t\tjson\n"
	nginxDocument  = "types {\n    text/html                                        html htm shtml;\n    image/jpeg                                       jpeg jpg;\n}\n"
)

var _ = Describe("HTTP Source Integration", Label("http"), func() {
	var (
		tempDir    string
		configFile string
		apache     *helpers.UpstreamServer
		debian     *helpers.UpstreamServer
		nginx      *helpers.UpstreamServer
	)

	BeforeEach(func() {
		tempDir = createTempDir("mime-sync-test-")

		apache = helpers.NewUpstreamServer(`"a1"`, apacheDocument)
		debian = helpers.NewUpstreamServer(`"d1"`, debianDocument)
		nginx = helpers.NewUpstreamServer(`"n1"`, nginxDocument)

		var err error
		configFile, err = helpers.WriteConfigYAML(tempDir, &config.Config{
			DataDir:      filepath.Join(tempDir, "data"),
			SyncInterval: "disabled",
			Sources: []config.SourceConfig{
				{Name: config.FormatApache, URL: apache.URL + "/mime.types"},
				{Name: config.FormatDebian, URL: debian.URL + "/mime.types"},
				{Name: config.FormatNginx, URL: nginx.URL + "/mime.types"},
			},
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		apache.Close()
		debian.Close()
		nginx.Close()
		cleanupTempDir(tempDir)
	})

	Context("First synchronization", func() {
		It("should merge every source and persist the snapshot", func() {
			registry, err := helpers.NewRegistryTestHelper(ctx, configFile)
			Expect(err).NotTo(HaveOccurred())

			delta, err := registry.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.IsEmpty()).To(BeFalse())

			Expect(registry.Lookup("photo.jpg")).To(Equal([]string{"image/jpeg"}))
			Expect(registry.Lookup("notes.txt")).To(Equal([]string{"text/plain"}))
			Expect(registry.Lookup("data.json")).To(Equal([]string{"application/json"}))
			Expect(registry.Lookup("index.html")).To(Equal([]string{"text/html"}))

			report := registry.Manager.LastReport()
			Expect(report.Persisted).To(BeTrue())
			Expect(report.Failed()).To(BeEmpty())
			Expect(report.Sources).To(HaveLen(3))
			Expect(report.Sources[config.FormatNginx].Version).To(Equal(`"n1"`))

			Expect(registry.Config.SnapshotPath()).To(BeARegularFile())
			Expect(registry.Changes()).To(HaveLen(1))
		})
	})

	Context("Restart", func() {
		It("should answer lookups from the persisted snapshot before any sync", func() {
			first, err := helpers.NewRegistryTestHelper(ctx, configFile)
			Expect(err).NotTo(HaveOccurred())
			_, err = first.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			_, err = first.Manager.SetOne(ctx, "md", "text/markdown")
			Expect(err).NotTo(HaveOccurred())

			restarted, err := helpers.NewRegistryTestHelper(ctx, configFile)
			Expect(err).NotTo(HaveOccurred())
			Expect(restarted.Lookup("README.md")).To(Equal([]string{"text/markdown"}))
			Expect(restarted.Lookup("photo.jpeg")).To(Equal([]string{"image/jpeg"}))
			Expect(restarted.Manager.Snapshot().Versions).To(HaveKeyWithValue(config.FormatApache, `"a1"`))
		})

		It("should probe but not refetch unchanged sources", func() {
			first, err := helpers.NewRegistryTestHelper(ctx, configFile)
			Expect(err).NotTo(HaveOccurred())
			_, err = first.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(apache.Gets()).To(Equal(1))

			restarted, err := helpers.NewRegistryTestHelper(ctx, configFile)
			Expect(err).NotTo(HaveOccurred())
			delta, err := restarted.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(delta.IsEmpty()).To(BeTrue())

			Expect(apache.Heads()).To(Equal(2))
			Expect(apache.Gets()).To(Equal(1))
			Expect(restarted.Manager.LastReport().Sources[config.FormatApache].Outcome).
				To(Equal(pkgsync.OutcomeUnchanged))
			Expect(restarted.Changes()).To(BeEmpty())
		})
	})

	Context("Upstream changes", func() {
		It("should fetch a source whose version token changed", func() {
			registry, err := helpers.NewRegistryTestHelper(ctx, configFile)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())

			debian.Publish(`"d2"`, debianDocument+"application/wasm\t\t\twasm\n")
			delta, err := registry.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(delta).To(HaveKeyWithValue("wasm", []string{"application/wasm"}))
			Expect(delta).To(HaveLen(1))
			Expect(debian.Gets()).To(Equal(2))
			Expect(apache.Gets()).To(Equal(1))
			Expect(registry.Manager.Snapshot().Versions).To(HaveKeyWithValue(config.FormatDebian, `"d2"`))
		})

		It("should keep associations when a source drops them", func() {
			registry, err := helpers.NewRegistryTestHelper(ctx, configFile)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())

			debian.Publish(`"d2"`, "application/wasm\t\t\twasm\n")
			_, err = registry.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.Lookup("data.json")).To(Equal([]string{"application/json"}))
			Expect(registry.Lookup("module.wasm")).To(Equal([]string{"application/wasm"}))
		})
	})

	Context("Partial failure", func() {
		It("should merge healthy sources when one upstream is down", func() {
			nginx.Fail(http.StatusServiceUnavailable)

			registry, err := helpers.NewRegistryTestHelper(ctx, configFile)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())

			report := registry.Manager.LastReport()
			Expect(report.Failed()).To(Equal([]string{config.FormatNginx}))
			Expect(report.Sources[config.FormatNginx].Outcome).To(Equal(pkgsync.OutcomeProbeFailed))
			Expect(registry.Lookup("notes.txt")).To(Equal([]string{"text/plain"}))
			Expect(registry.Lookup("index.html")).To(BeEmpty())
			Expect(registry.Manager.Snapshot().Versions).NotTo(HaveKey(config.FormatNginx))

			By("recovering on the next cycle")
			nginx.Fail(http.StatusOK)
			_, err = registry.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Lookup("index.html")).To(Equal([]string{"text/html"}))
		})
	})

	Context("File source", func() {
		It("should read a local mime.types file", func() {
			path := filepath.Join(tempDir, "mime.types")
			Expect(os.WriteFile(path, []byte("font/woff2\t\twoff2\n"), 0600)).To(Succeed())

			fileConfig, err := helpers.WriteConfigYAML(tempDir, &config.Config{
				DataDir:      filepath.Join(tempDir, "file-data"),
				SyncInterval: "disabled",
				Sources: []config.SourceConfig{
					{Name: "local", URL: "file://" + path, Format: config.FormatDebian},
				},
			})
			Expect(err).NotTo(HaveOccurred())

			registry, err := helpers.NewRegistryTestHelper(ctx, fileConfig)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Manager.Synchronize(ctx, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(registry.Lookup("font.woff2")).To(Equal([]string{"font/woff2"}))
		})
	})
})
