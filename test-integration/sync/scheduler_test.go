package integration

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/stacklok/toolhive-mime-registry/internal/config"
	"github.com/stacklok/toolhive-mime-registry/test-integration/sync/helpers"
)

var _ = Describe("Scheduled Synchronization", Label("scheduler"), func() {
	var (
		tempDir  string
		upstream *helpers.UpstreamServer
		registry *helpers.RegistryTestHelper
	)

	BeforeEach(func() {
		tempDir = createTempDir("mime-scheduler-test-")
		upstream = helpers.NewUpstreamServer(`"v1"`, "text/plain\ttxt\n")

		configFile, err := helpers.WriteConfigYAML(tempDir, &config.Config{
			DataDir:      filepath.Join(tempDir, "data"),
			SyncInterval: "50ms",
			Sources: []config.SourceConfig{
				{Name: config.FormatDebian, URL: upstream.URL + "/mime.types"},
			},
		})
		Expect(err).NotTo(HaveOccurred())

		registry, err = helpers.NewRegistryTestHelper(ctx, configFile)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		registry.Stop()
		upstream.Close()
		cleanupTempDir(tempDir)
	})

	It("should pick up upstream changes on the next tick", func() {
		Expect(registry.StartScheduler(ctx)).To(Succeed())
		Expect(registry.Coordinator.Interval()).To(Equal(50 * time.Millisecond))

		Expect(registry.WaitForLookup("a.txt", 5*time.Second)).To(Equal([]string{"text/plain"}))

		upstream.Publish(`"v2"`, "text/plain\ttxt\ntext/csv\tcsv\n")
		Eventually(func() []string {
			return registry.Lookup("report.csv")
		}, 5*time.Second, 20*time.Millisecond).Should(Equal([]string{"text/csv"}))

		Eventually(registry.Changes, 5*time.Second, 20*time.Millisecond).Should(HaveLen(2))
		Expect(registry.Failures()).To(BeEmpty())
	})

	It("should stop probing once stopped", func() {
		Expect(registry.StartScheduler(ctx)).To(Succeed())
		Eventually(upstream.Heads, 5*time.Second, 20*time.Millisecond).Should(BeNumerically(">=", 2))

		registry.Stop()
		heads := upstream.Heads()
		Consistently(upstream.Heads, 200*time.Millisecond, 20*time.Millisecond).Should(Equal(heads))
	})
})
