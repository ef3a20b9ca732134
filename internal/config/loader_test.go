package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/dock108/scrolldown/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DataMode, convey.ShouldEqual, config.DataModeMock)
				convey.So(cfg.MockLatencyMS, convey.ShouldEqual, 150)
				convey.So(cfg.SessionLimit, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SCROLLDOWN_ADDR", ":9090")
			_ = os.Setenv("SCROLLDOWN_DATA_MODE", "API")
			_ = os.Setenv("SCROLLDOWN_API_BASE_URL", "http://pbp.internal:8000")
			_ = os.Setenv("SCROLLDOWN_REDIS_ADDR", "localhost:6379")
			_ = os.Setenv("SCROLLDOWN_CACHE_TTL_SECONDS", "60")
			_ = os.Setenv("SCROLLDOWN_WORKER_COUNT", "3")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.DataMode, convey.ShouldEqual, config.DataModeAPI)
				convey.So(cfg.BaseURL(), convey.ShouldEqual, "http://pbp.internal:8000")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
# file layer
addr: ":9191"
log_format: json
mock_latency_ms: 20
session_limit: 50
prefetch_queue_size: 8
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SCROLLDOWN_CONFIG", tmpFile)
			_ = os.Setenv("SCROLLDOWN_SESSION_LIMIT", "75")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9191")     // From file
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json") // From file
				convey.So(cfg.MockLatencyMS, convey.ShouldEqual, 20) // From file
				convey.So(cfg.SessionLimit, convey.ShouldEqual, 75)  // Overridden by env
				convey.So(cfg.PrefetchQueueSize, convey.ShouldEqual, 8)
				convey.So(cfg.DedupeSize, convey.ShouldEqual, 10_000) // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SCROLLDOWN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SCROLLDOWN_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown data mode", func() {
			_ = os.Setenv("SCROLLDOWN_DATA_MODE", "replay")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "replay")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SCROLLDOWN_WORKER_COUNT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with YAML file containing an empty addr", func() {
			tmpFile := createTempConfigFile("addr: \"\"\nworker_count: 2\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SCROLLDOWN_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return validation error for empty addr", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SCROLLDOWN_CONFIG",
		"SCROLLDOWN_ADDR",
		"SCROLLDOWN_DATA_MODE",
		"SCROLLDOWN_API_BASE_URL",
		"SCROLLDOWN_REDIS_ADDR",
		"SCROLLDOWN_CACHE_TTL_SECONDS",
		"SCROLLDOWN_WORKER_COUNT",
		"SCROLLDOWN_SESSION_LIMIT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "scrolldown-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
