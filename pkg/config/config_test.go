package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/cortex/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file and fills in defaults", func() {
			data := `version = 0

[client]
user_id = "user_1"

[chat]
copilot = "cop_1"
knowledge = "handbook"

[events]
provider = "kafka"
brokers = ["k1:9092", "k2:9092"]
`
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.UserID).To(Equal("user_1"))
			Expect(cfg.Chat.Copilot).To(Equal("cop_1"))
			Expect(cfg.Chat.Knowledge).To(Equal("handbook"))
			Expect(cfg.Events.Provider).To(Equal(config.EventsProviderKafka))
			Expect(cfg.Events.Brokers).To(Equal([]string{"k1:9092", "k2:9092"}))

			defaults := config.NewDefaultConfig()
			Expect(cfg.Client.BaseURL).To(Equal(defaults.Client.BaseURL))
			Expect(cfg.Chat.Version).To(Equal(defaults.Chat.Version))
			Expect(cfg.Events.Topic).To(Equal(defaults.Events.Topic))
			Expect(cfg.Sync.Workers).To(Equal(defaults.Sync.Workers))
			Expect(cfg.MCP.Listen).To(Equal(defaults.MCP.Listen))
		})

		It("returns error for malformed TOML", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("not valid [[["), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
		})

		It("returns error for unsupported config version", func() {
			err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("version = 99\n"), 0o600)
			Expect(err).NotTo(HaveOccurred())

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 99")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg := config.NewDefaultConfig()
			cfg.Client.UserID = "user_2"
			cfg.Events.Brokers = []string{"localhost:9092"}
			Expect(c.SaveConfig(cfg)).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(cfg))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SaveConfig(nil)).To(MatchError("cannot save nil config"))
		})
	})

	Describe("SetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("sets a string config key", func() {
			Expect(c.SetConfigValue("chat.copilot", "cop_9")).To(Succeed())

			v, err := c.GetConfigValue("chat.copilot")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("cop_9"))
		})

		It("sets a uint config key", func() {
			Expect(c.SetConfigValue("sync.workers", "8")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Sync.Workers).To(Equal(uint(8)))
		})

		It("splits broker lists on commas", func() {
			Expect(c.SetConfigValue("events.brokers", "a:9092, b:9092,,")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Events.Brokers).To(Equal([]string{"a:9092", "b:9092"}))

			v, err := c.GetConfigValue("events.brokers")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("a:9092,b:9092"))
		})

		It("validates durations, providers and numbers", func() {
			Expect(c.SetConfigValue("client.timeout", "soon")).To(MatchError(ContainSubstring("client.timeout")))
			Expect(c.SetConfigValue("events.provider", "rabbit")).To(MatchError(ContainSubstring("events.provider")))
			Expect(c.SetConfigValue("sync.queue_size", "lots")).To(MatchError(ContainSubstring("sync.queue_size")))
		})

		It("returns error for unknown key", func() {
			Expect(c.SetConfigValue("proxy.upstream", "x")).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("preserves existing values when setting a new key", func() {
			Expect(c.SetConfigValue("client.user_id", "user_1")).To(Succeed())
			Expect(c.SetConfigValue("chat.knowledge", "kb")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Client.UserID).To(Equal("user_1"))
			Expect(cfg.Chat.Knowledge).To(Equal("kb"))
		})
	})

	Describe("GetConfigValue", func() {
		It("returns default value when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			v, err := c.GetConfigValue("client.base_url")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(Equal("https://trycortex.ai/api/sdk"))
		})

		It("returns empty string for key with no default", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			v, err := c.GetConfigValue("history.sqlite_path")
			Expect(err).NotTo(HaveOccurred())
			Expect(v).To(BeEmpty())
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.GetConfigValue("nope")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("UnsetConfigValue", func() {
		It("restores defaults and clears keys without one", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SetConfigValue("client.timeout", "5s")).To(Succeed())
			Expect(c.SetConfigValue("chat.knowledge", "kb")).To(Succeed())
			Expect(c.UnsetConfigValue("client.timeout")).To(Succeed())
			Expect(c.UnsetConfigValue("chat.knowledge")).To(Succeed())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("returns error for unknown key", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.UnsetConfigValue("nope")).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("Values", func() {
		It("returns every key with its effective value", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.SetConfigValue("mcp.listen", ":9000")).To(Succeed())

			values, err := c.Values()
			Expect(err).NotTo(HaveOccurred())
			Expect(values).To(HaveLen(len(config.ValidConfigKeys())))
			Expect(values[0]).To(Equal([2]string{"client.base_url", "https://trycortex.ai/api/sdk"}))
			Expect(values[len(values)-1]).To(Equal([2]string{"mcp.listen", ":9000"}))
		})
	})

	Describe("ValidConfigKeys", func() {
		It("returns every key in section order", func() {
			keys := config.ValidConfigKeys()
			Expect(keys).To(HaveLen(16))
			Expect(keys[0]).To(Equal("client.base_url"))
			Expect(keys[len(keys)-1]).To(Equal("mcp.listen"))
			for _, k := range keys {
				Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
			}
		})
	})
})

var _ = Describe("ClientConfig", func() {
	It("parses the timeout", func() {
		d, err := config.ClientConfig{Timeout: "90s"}.TimeoutDuration()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(90 * time.Second))

		d, err = config.ClientConfig{}.TimeoutDuration()
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeZero())

		_, err = config.ClientConfig{Timeout: "later"}.TimeoutDuration()
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("returns defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(config.FromViper(v)).To(Equal(config.NewDefaultConfig()))
	})

	It("reads config file values over defaults", func() {
		data := `[chat]
copilot = "cop_file"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.GetString("chat.copilot")).To(Equal("cop_file"))
		Expect(v.GetString("mcp.listen")).To(Equal(config.NewDefaultConfig().MCP.Listen))
	})

	It("env vars take precedence over config file values", func() {
		data := `[chat]
copilot = "cop_file"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
		GinkgoT().Setenv("CORTEX_CHAT_COPILOT", "cop_env")
		GinkgoT().Setenv("CORTEX_EVENTS_BROKERS", "k1:9092 k2:9092")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Chat.Copilot).To(Equal("cop_env"))
		Expect(cfg.Events.Brokers).To(Equal([]string{"k1:9092", "k2:9092"}))
	})
})

var _ = Describe("BindFlags", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("binds cobra flags to viper keys via registry", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.MCPFlags, config.FlagMCPListen, &listen)

		Expect(cmd.Flags().Set("listen", ":7777")).To(Succeed())
		config.BindRegisteredFlags(v, cmd, config.MCPFlags, []string{config.FlagMCPListen})

		Expect(v.GetString("mcp.listen")).To(Equal(":7777"))
	})

	It("falls through to config when flag not set", func() {
		data := `[mcp]
listen = ":5555"
`
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var listen string
		config.AddStringFlag(cmd, config.MCPFlags, config.FlagMCPListen, &listen)
		config.BindRegisteredFlags(v, cmd, config.MCPFlags, []string{config.FlagMCPListen})

		Expect(v.GetString("mcp.listen")).To(Equal(":5555"))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, config.FlagSet{}, []string{"nonexistent"})

		Expect(v.GetString("mcp.listen")).To(Equal(config.NewDefaultConfig().MCP.Listen))
	})

	It("AddStringFlag pulls name, shorthand, default and description from FlagSet", func() {
		cmd := &cobra.Command{Use: "test"}
		var base string
		config.AddStringFlag(cmd, config.ClientFlags, config.FlagBaseURL, &base)

		f := cmd.Flags().Lookup("base-url")
		Expect(f).NotTo(BeNil())
		Expect(f.Usage).To(Equal("Cortex SDK base URL"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Client.BaseURL))

		var user string
		config.AddStringFlag(cmd, config.ClientFlags, config.FlagUserID, &user)
		Expect(cmd.Flags().Lookup("user-id").Shorthand).To(Equal("u"))
	})

	It("AddUintFlag and AddStringSliceFlag register typed flags", func() {
		cmd := &cobra.Command{Use: "test"}
		var workers uint
		var brokers []string
		config.AddUintFlag(cmd, config.SyncFlags, config.FlagSyncWorkers, &workers)
		config.AddStringSliceFlag(cmd, config.ClientFlags, config.FlagKafkaBrokers, &brokers)

		Expect(cmd.Flags().Lookup("workers").DefValue).To(Equal("4"))
		Expect(cmd.Flags().Set("kafka-brokers", "a:1,b:2")).To(Succeed())
		Expect(brokers).To(Equal([]string{"a:1", "b:2"}))
	})
})
