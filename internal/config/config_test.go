package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"
)

func parse(args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("ptinspect", pflag.ContinueOnError)
	BindFlags(fs)
	Expect(fs.Parse(args)).To(Succeed())
	return fs
}

var _ = Describe("Load", func() {
	It("applies defaults", func() {
		cfg, err := Load(parse("model.pt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(&Config{Path: "model.pt", LogFormat: LogFormatConsole}))
	})

	It("reads flags", func() {
		cfg, err := Load(parse("--mmap", "--records", "--code", "--metrics", "-v", "2", "--log-format", "json", "model.pt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.UseMmap).To(BeTrue())
		Expect(cfg.ListRecords).To(BeTrue())
		Expect(cfg.IncludeCode).To(BeTrue())
		Expect(cfg.PrintMetrics).To(BeTrue())
		Expect(cfg.LogLevel).To(Equal(2))
		Expect(cfg.LogFormat).To(Equal(LogFormatJSON))
	})

	It("reads the environment", func() {
		GinkgoT().Setenv("PTINSPECT_MMAP", "true")
		GinkgoT().Setenv("PTINSPECT_LOG_FORMAT", "json")

		cfg, err := Load(parse("model.pt"))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.UseMmap).To(BeTrue())
		Expect(cfg.LogFormat).To(Equal(LogFormatJSON))
	})

	Context("with a config file", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "ptinspect.yaml")
			Expect(os.WriteFile(path, []byte("records: true\nlog-level: 1\n"), 0o600)).To(Succeed())
		})

		It("reads the file", func() {
			cfg, err := Load(parse("--config", path, "model.pt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.ListRecords).To(BeTrue())
			Expect(cfg.LogLevel).To(Equal(1))
		})

		It("lets flags override the file", func() {
			cfg, err := Load(parse("--config", path, "-v", "3", "model.pt"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.LogLevel).To(Equal(3))
		})
	})

	It("fails on a missing config file", func() {
		_, err := Load(parse("--config", filepath.Join(GinkgoT().TempDir(), "missing.yaml"), "model.pt"))
		Expect(err).To(MatchError(ContainSubstring("failed to read config file")))
	})
})

var _ = Describe("Validate", func() {
	DescribeTable("rejects invalid values",
		func(cfg Config, msg string) {
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(msg)))
		},
		Entry("missing path", Config{LogFormat: LogFormatConsole}, "archive path is required"),
		Entry("negative log level", Config{Path: "m.pt", LogLevel: -1, LogFormat: LogFormatConsole}, "log-level"),
		Entry("unknown log format", Config{Path: "m.pt", LogFormat: "xml"}, "log-format"),
	)

	It("accepts a valid config", func() {
		Expect((&Config{Path: "m.pt", LogFormat: LogFormatJSON}).Validate()).To(Succeed())
	})
})
