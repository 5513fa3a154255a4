package config

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	Describe("Default", func() {
		It("returns a config that validates on its own", func() {
			config := Default()
			Expect(validate(config)).NotTo(HaveOccurred())
		})
	})

	Describe("Load", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "eureka-config-*")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(dir)
		})

		writeConfig := func(contents string) string {
			path := filepath.Join(dir, "config.yaml")
			Expect(os.WriteFile(path, []byte(contents), 0o644)).To(Succeed())
			return path
		}

		Context("when the file does not exist", func() {
			It("returns an error mentioning the file", func() {
				_, err := Load(filepath.Join(dir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to read config file"))
			})
		})

		Context("when the file is not valid YAML", func() {
			It("returns a parse error", func() {
				path := writeConfig("database: [this is not valid")
				_, err := Load(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to parse config file"))
			})
		})

		Context("when the file overrides a subset of fields", func() {
			It("merges onto the defaults", func() {
				path := writeConfig(`
database:
  dsn: "host=db port=5432 user=resolver dbname=offchain sslmode=require"
resolver:
  exit_on_completion: true
  gateway:
    ipfs_gateway_url: "https://gateway.example.com/ipfs"
logging:
  level: debug
  format: console
`)
				config, err := Load(path)
				Expect(err).NotTo(HaveOccurred())

				Expect(config.Database.DSN).To(Equal("host=db port=5432 user=resolver dbname=offchain sslmode=require"))
				Expect(config.Database.MaxOpenConns).To(Equal(25)) // unset, from Default()
				Expect(config.Resolver.ExitOnCompletion).To(BeTrue())
				Expect(config.Resolver.Gateway.IPFSGatewayURL).To(Equal("https://gateway.example.com/ipfs"))
				Expect(config.Logging.Level).To(Equal("debug"))
				Expect(config.Logging.Format).To(Equal("console"))
				Expect(config.Server.StatusPort).To(Equal(8080)) // unset, from Default()
			})
		})

		Context("when the merged config fails validation", func() {
			It("returns the validation error", func() {
				path := writeConfig(`
logging:
  level: verbose
`)
				_, err := Load(path)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logging.level"))
			})
		})
	})

	Describe("loadFromEnv", func() {
		var config *Config

		BeforeEach(func() {
			config = Default()
		})

		AfterEach(func() {
			os.Unsetenv("EUREKA_DATABASE_DSN")
			os.Unsetenv("EUREKA_DEDUPE_REDIS_ADDR")
			os.Unsetenv("EUREKA_SERVER_STATUS_PORT")
		})

		Context("when overrides are set", func() {
			It("overlays them onto config", func() {
				os.Setenv("EUREKA_DATABASE_DSN", "host=envhost port=5432 user=u dbname=d sslmode=disable")
				os.Setenv("EUREKA_DEDUPE_REDIS_ADDR", "localhost:6379")
				os.Setenv("EUREKA_SERVER_STATUS_PORT", "9999")

				loadFromEnv(config)

				Expect(config.Database.DSN).To(Equal("host=envhost port=5432 user=u dbname=d sslmode=disable"))
				Expect(config.Dedupe.RedisAddr).To(Equal("localhost:6379"))
				Expect(config.Server.StatusPort).To(Equal(9999))
			})
		})

		Context("when EUREKA_SERVER_STATUS_PORT is not numeric", func() {
			It("keeps the existing value", func() {
				os.Setenv("EUREKA_SERVER_STATUS_PORT", "not-a-port")
				original := config.Server.StatusPort

				loadFromEnv(config)

				Expect(config.Server.StatusPort).To(Equal(original))
			})
		})

		Context("when no overrides are set", func() {
			It("leaves config unchanged", func() {
				before := *config
				loadFromEnv(config)
				Expect(*config).To(Equal(before))
			})
		})
	})

	Describe("validate", func() {
		var config *Config

		BeforeEach(func() {
			config = Default()
		})

		DescribeTable("rejects invalid configs",
			func(mutate func(*Config), substring string) {
				mutate(config)
				err := validate(config)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring(substring))
			},
			Entry("empty DSN", func(c *Config) { c.Database.DSN = "" }, "database.dsn is required"),
			Entry("zero max open conns", func(c *Config) { c.Database.MaxOpenConns = 0 }, "database.max_open_conns"),
			Entry("negative max idle conns", func(c *Config) { c.Database.MaxIdleConns = -1 }, "database.max_idle_conns"),
			Entry("status port out of range", func(c *Config) { c.Server.StatusPort = 0 }, "server.status_port"),
			Entry("metrics port out of range", func(c *Config) { c.Server.MetricsPort = 70000 }, "server.metrics_port"),
			Entry("unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"),
			Entry("unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"),
		)
	})
})
