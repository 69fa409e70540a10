package cmdutil_test

import (
	"encoding/json"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/cmd/cortex/cmdutil"
	"github.com/papercomputeco/cortex/pkg/config"
	"github.com/papercomputeco/cortex/pkg/credentials"
	"github.com/papercomputeco/cortex/pkg/eventstream/kafka"
	"github.com/papercomputeco/cortex/pkg/eventstream/nop"
	"github.com/papercomputeco/cortex/pkg/logger"
)

func newCmd(configDir string) *cobra.Command {
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().String("config-dir", configDir, "")
	cmdutil.AddClientFlags(cmd)
	return cmd
}

var _ = Describe("LoadConfig", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		GinkgoT().Setenv("CORTEX_CLIENT_USER_ID", "")
	})

	It("applies defaults", func() {
		cfg, err := cmdutil.LoadConfig(newCmd(dir))
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.BaseURL).To(Equal("https://trycortex.ai/api/sdk"))
		Expect(cfg.Events.Provider).To(Equal(config.EventsProviderNone))
	})

	It("lets flags win over the config file", func() {
		cfger, err := config.NewConfiger(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfger.SetConfigValue("client.user_id", "from-file")).To(Succeed())
		Expect(cfger.SetConfigValue("client.base_url", "https://file.example")).To(Succeed())

		cmd := newCmd(dir)
		Expect(cmd.ParseFlags([]string{"--user-id", "from-flag"})).To(Succeed())

		cfg, err := cmdutil.LoadConfig(cmd)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Client.UserID).To(Equal("from-flag"))
		Expect(cfg.Client.BaseURL).To(Equal("https://file.example"))
	})
})

var _ = Describe("NewPublisher", func() {
	It("defaults to the nop publisher", func() {
		pub, err := cmdutil.NewPublisher(config.EventsConfig{}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&nop.Publisher{}))
	})

	It("builds a kafka publisher", func() {
		pub, err := cmdutil.NewPublisher(config.EventsConfig{
			Provider: config.EventsProviderKafka,
			Brokers:  []string{"localhost:9092"},
			Topic:    "t",
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(pub).To(BeAssignableToTypeOf(&kafka.Publisher{}))
		Expect(pub.Close()).To(Succeed())
	})

	It("rejects kafka without brokers", func() {
		_, err := cmdutil.NewPublisher(config.EventsConfig{Provider: config.EventsProviderKafka, Topic: "t"}, logger.Nop())
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown providers", func() {
		_, err := cmdutil.NewPublisher(config.EventsConfig{Provider: "nats"}, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("unknown events provider")))
	})
})

var _ = Describe("NewClient", func() {
	var (
		dir string
		cfg *config.Config
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		GinkgoT().Setenv(credentials.EnvAPIKey, "")
		cfg = config.NewDefaultConfig()
		cfg.Client.UserID = "user"
	})

	It("fails without an API key", func() {
		_, _, err := cmdutil.NewClient(cfg, dir, logger.Nop())
		Expect(err).To(MatchError(ContainSubstring("no API key found")))
	})

	It("uses the key stored for the profile", func() {
		creds, err := credentials.NewManager(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(creds.SetKey("work", "sk-work")).To(Succeed())
		cfg.Client.Profile = "work"

		client, pub, err := cmdutil.NewClient(cfg, dir, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		Expect(client).NotTo(BeNil())
		Expect(pub.Close()).To(Succeed())
	})

	It("rejects an invalid timeout", func() {
		GinkgoT().Setenv(credentials.EnvAPIKey, "sk-env")
		cfg.Client.Timeout = "soon"

		_, _, err := cmdutil.NewClient(cfg, dir, logger.Nop())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("NewServiceLogger", func() {
	It("returns the stderr logger without a log file", func() {
		log, closeLog, err := cmdutil.NewServiceLogger(newCmd(""), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(log).NotTo(BeNil())
		Expect(closeLog()).To(Succeed())
	})

	It("also writes JSON records to the log file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "serve.log")

		log, closeLog, err := cmdutil.NewServiceLogger(newCmd(""), path)
		Expect(err).NotTo(HaveOccurred())
		log.Info("listening", "addr", ":8090")
		Expect(closeLog()).To(Succeed())

		raw, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())

		var rec map[string]any
		Expect(json.Unmarshal(raw, &rec)).To(Succeed())
		Expect(rec).To(HaveKeyWithValue("msg", "listening"))
		Expect(rec).To(HaveKeyWithValue("addr", ":8090"))
	})

	It("fails when the log file cannot be opened", func() {
		_, _, err := cmdutil.NewServiceLogger(newCmd(""), filepath.Join(GinkgoT().TempDir(), "missing", "serve.log"))
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})
