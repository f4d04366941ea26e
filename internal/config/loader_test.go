package config_test

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/okian/fluency/internal/config"
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
				convey.So(cfg.Addr, convey.ShouldEqual, ":8000")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
				convey.So(cfg.MinSilenceMS, convey.ShouldEqual, 2000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FLUENCY_ADDR", ":8080")
			_ = os.Setenv("FLUENCY_QUEUE_SIZE", "128")
			_ = os.Setenv("FLUENCY_WORKER_COUNT", "16")
			_ = os.Setenv("FLUENCY_MIN_SILENCE_MS", "1500")
			_ = os.Setenv("FLUENCY_SILENCE_THRESH_DB", "-35.5")
			_ = os.Setenv("FLUENCY_TRANSCRIBER", "Gemini")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 128)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.MinSilenceMS, convey.ShouldEqual, 1500)
				convey.So(cfg.SilenceThreshDB, convey.ShouldEqual, -35.5)
				convey.So(cfg.Transcriber, convey.ShouldEqual, config.TranscriberGemini)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
worker_count: 24
pause_threshold_seconds: 1.5
default_best_band: "band_7.0"
temp_dir: "/var/tmp/fluency"
metrics_latency_buckets_ms: [10, 100, 1000]
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FLUENCY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.PauseThresholdSeconds, convey.ShouldEqual, 1.5)
				convey.So(cfg.DefaultBestBand, convey.ShouldEqual, "band_7.0")
				convey.So(cfg.TempDir, convey.ShouldEqual, "/var/tmp/fluency")
				convey.So(cfg.MetricsLatencyBucketsMS, convey.ShouldResemble, []float64{10, 100, 1000})
				convey.So(cfg.HesitationDamage, convey.ShouldEqual, 10) // From defaults
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
worker_count: 24
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FLUENCY_CONFIG", tmpFile)
			_ = os.Setenv("FLUENCY_ADDR", ":8080")      // This should override the file
			_ = os.Setenv("FLUENCY_WORKER_COUNT", "32") // This should override the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")   // Overridden by env
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)  // From file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32) // Overridden by env
			})
		})

		convey.Convey("When the provider keys are only set without prefix", func() {
			_ = os.Setenv("OPENAI_API_KEY", "sk-plain")
			_ = os.Setenv("GEMINI_API_KEY", "gm-plain")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then they should be used as fallbacks", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.OpenAIAPIKey, convey.ShouldEqual, "sk-plain")
				convey.So(cfg.GeminiAPIKey, convey.ShouldEqual, "gm-plain")
			})
		})

		convey.Convey("When both prefixed and plain provider keys are set", func() {
			_ = os.Setenv("OPENAI_API_KEY", "sk-plain")
			_ = os.Setenv("FLUENCY_OPENAI_API_KEY", "sk-prefixed")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then the prefixed key should win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.OpenAIAPIKey, convey.ShouldEqual, "sk-prefixed")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("FLUENCY_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("FLUENCY_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("FLUENCY_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an unknown transcriber", func() {
			_ = os.Setenv("FLUENCY_TRANSCRIBER", "azure")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("FLUENCY_QUEUE_SIZE", "invalid")
			_ = os.Setenv("FLUENCY_WORKER_COUNT", "not_a_number")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with zero workers", func() {
			_ = os.Setenv("FLUENCY_WORKER_COUNT", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"FLUENCY_CONFIG",
		"FLUENCY_ADDR",
		"FLUENCY_QUEUE_SIZE",
		"FLUENCY_WORKER_COUNT",
		"FLUENCY_MIN_SILENCE_MS",
		"FLUENCY_SILENCE_THRESH_DB",
		"FLUENCY_TRANSCRIBER",
		"FLUENCY_OPENAI_API_KEY",
		"OPENAI_API_KEY",
		"GEMINI_API_KEY",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "fluency-config-*.yaml")
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
