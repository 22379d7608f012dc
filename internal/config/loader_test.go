package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/salesboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.BackendURL, convey.ShouldEqual, "http://localhost:5000")
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 6000)
				convey.So(cfg.CooldownMS, convey.ShouldEqual, 10000)
				convey.So(cfg.StateDBPath, convey.ShouldEqual, "salesboard.db")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SALESBOARD_ADDR", ":8080")
			_ = os.Setenv("SALESBOARD_BACKEND_URL", "http://sales.internal")
			_ = os.Setenv("SALESBOARD_POLL_INTERVAL_MS", "2500")
			_ = os.Setenv("SALESBOARD_COOLDOWN_MS", "3000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BackendURL, convey.ShouldEqual, "http://sales.internal")
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 2500)
				convey.So(cfg.CooldownMS, convey.ShouldEqual, 3000)
			})
		})

		convey.Convey("When metrics settings come from the environment", func() {
			_ = os.Setenv("SALESBOARD_METRICS_ENABLED", "false")
			_ = os.Setenv("SALESBOARD_METRICS_REFRESH_MS", "2000")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then recording is off and sampling follows the interval", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MetricsEnabled, convey.ShouldBeFalse)
				convey.So(cfg.MetricsRefreshMS, convey.ShouldEqual, 2000)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
poll_interval_ms: 4000
render_delay_ms: 500
state_db_path: ""
asset_base: "/media"
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SALESBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 4000)
				convey.So(cfg.RenderDelayMS, convey.ShouldEqual, 500)
				convey.So(cfg.StateDBPath, convey.ShouldEqual, "")
				convey.So(cfg.AssetBase, convey.ShouldEqual, "/media")
				convey.So(cfg.CooldownMS, convey.ShouldEqual, 10000)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
poll_interval_ms: 4000
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SALESBOARD_CONFIG", tmpFile)
			_ = os.Setenv("SALESBOARD_POLL_INTERVAL_MS", "1500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 1500)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SALESBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SALESBOARD_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file blanks the addr", func() {
			tmpFile := createTempConfigFile(`addr: ""`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("SALESBOARD_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When the poll interval is not positive", func() {
			_ = os.Setenv("SALESBOARD_POLL_INTERVAL_MS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("SALESBOARD_POLL_INTERVAL_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"SALESBOARD_CONFIG",
		"SALESBOARD_ADDR",
		"SALESBOARD_BACKEND_URL",
		"SALESBOARD_POLL_INTERVAL_MS",
		"SALESBOARD_COOLDOWN_MS",
		"SALESBOARD_METRICS_ENABLED",
		"SALESBOARD_METRICS_REFRESH_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "salesboard-config-*.yaml")
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
