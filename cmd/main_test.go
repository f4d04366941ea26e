package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/fluency/internal/adapters/transcription"
	"github.com/okian/fluency/internal/config"
	"github.com/okian/fluency/pkg/logger"
	"github.com/okian/fluency/pkg/metrics"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.OpenAIAPIKey = "sk-test"
	cfg.WorkerCount = 2
	cfg.QueueSize = 8
	return cfg
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a valid configuration", t, func() {
		ctx := context.Background()
		cfg := testConfig()

		convey.Convey("When building the service", func() {
			svc, err := buildService(ctx, cfg, logger.Get())

			convey.Convey("Then it should be created with the configured sizes", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc, convey.ShouldNotBeNil)
				stats := svc.GetStats()
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
				convey.So(stats["queueCapacity"], convey.ShouldEqual, 8)
				convey.So(stats["maxLimit"], convey.ShouldEqual, cfg.MaxLeaderboardLimit)
			})

			convey.Convey("And it should start and stop cleanly", func() {
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				convey.So(svc.GetStats()["started"], convey.ShouldEqual, true)
				svc.Stop()
				convey.So(svc.GetStats()["started"], convey.ShouldEqual, false)
			})
		})
	})

	convey.Convey("Given a gemini configuration without a key", t, func() {
		cfg := testConfig()
		cfg.Transcriber = config.TranscriberGemini
		cfg.GeminiAPIKey = ""

		convey.Convey("When building the service", func() {
			svc, err := buildService(context.Background(), cfg, logger.Get())

			convey.Convey("Then it should fail on the missing credentials", func() {
				convey.So(svc, convey.ShouldBeNil)
				convey.So(errors.Is(err, transcription.ErrMissingAPIKey), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNewHTTPServer(t *testing.T) {
	convey.Convey("Given a running service behind the HTTP server", t, func() {
		ctx := context.Background()
		cfg := testConfig()
		cfg.Addr = ":0"
		cfg.CORSAllowedOrigin = "https://app.example"

		svc, err := buildService(ctx, cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := newHTTPServer(ctx, cfg, svc)

		convey.Convey("Then it should use the configured address and long write timeout", func() {
			convey.So(srv.Addr, convey.ShouldEqual, ":0")
			convey.So(srv.WriteTimeout, convey.ShouldEqual, writeTimeout)
		})

		convey.Convey("And the health route should pass through the middleware", func() {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "https://app.example")
			convey.So(w.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
		})

		convey.Convey("And the docs should be registered", func() {
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "/analyze-speech")
		})

		convey.Convey("And leaderboard submissions should reach the store", func() {
			form := strings.NewReader("user_id=u1&username=alice&total_damage=15")
			req := httptest.NewRequest(http.MethodPost, "/leaderboard/submit", form)
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			srv.Handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)

			entry, err := svc.Get(ctx, "u1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(entry.TotalDamage, convey.ShouldEqual, 15)
			convey.So(entry.BestBand, convey.ShouldEqual, cfg.DefaultBestBand)
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given a configuration with metric naming and an environment", t, func() {
		cfg := testConfig()
		cfg.MetricsNamespace = "speech"
		cfg.MetricsSubsystem = "api"
		cfg.Environment = "staging"

		convey.Convey("When a manager is built from it", func() {
			registry := prometheus.NewRegistry()
			metrics.NewManager(append(metricsOptions(cfg), metrics.WithPrometheusRegistry(registry))...)
			families, err := registry.Gather()

			convey.Convey("Then metric names and labels should follow the configuration", func() {
				convey.So(err, convey.ShouldBeNil)
				var found bool
				for _, f := range families {
					if f.GetName() != "speech_api_worker_count" {
						continue
					}
					found = true
					labels := f.GetMetric()[0].GetLabel()
					convey.So(labels, convey.ShouldHaveLength, 1)
					convey.So(labels[0].GetValue(), convey.ShouldEqual, "staging")
				}
				convey.So(found, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the environment is empty", func() {
			cfg.Environment = ""

			convey.Convey("Then no constant label should be added", func() {
				convey.So(metricsOptions(cfg), convey.ShouldHaveLength, 3)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("When the system metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it should return without panicking", func() {
				convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When the service metrics updater runs on a stopped service", func() {
			svc, err := buildService(context.Background(), testConfig(), logger.Get())
			convey.So(err, convey.ShouldBeNil)
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.Convey("Then it should return without panicking", func() {
				convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When system metrics are sampled", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When creating a metrics manager on its own registry", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))

			convey.Convey("Then it should not collide with the global one", func() {
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}
