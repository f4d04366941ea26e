package probe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fluency/internal/adapters/http/api"
	"github.com/okian/fluency/internal/adapters/repository"
	"github.com/okian/fluency/internal/domain/model"
	"github.com/okian/fluency/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
}

// storeDeps serves the leaderboard routes from a real store.
type storeDeps struct {
	*repository.TreapStore
}

func (storeDeps) Analyze(context.Context, model.Upload) (model.AnalysisResult, error) {
	return model.AnalysisResult{}, errors.New("not served")
}

func newLeaderboardServer(ctx context.Context) (*httptest.Server, *repository.TreapStore) {
	store := repository.NewTreapStore(ctx)
	mux := http.NewServeMux()
	srv := api.NewServer(storeDeps{store}, nil)
	srv.Register(ctx, mux)
	return httptest.NewServer(srv.Handler(mux)), store
}

func testConfig(baseURL string) *Config {
	return &Config{
		BaseURL:         baseURL,
		Users:           40,
		AttemptsPerUser: 4,
		MaxDamage:       60,
		TopN:            100,
		Workers:         8,
		Timeout:         5 * time.Second,
	}
}

func TestRun(t *testing.T) {
	Convey("Given a service backed by the in-memory leaderboard", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		ts, store := newLeaderboardServer(ctx)
		defer ts.Close()
		defer func() { _ = store.Close() }()

		Convey("When the probe runs", func() {
			cfg := testConfig(ts.URL)
			stats, err := Run(ctx, cfg)

			Convey("Then every submission should be accepted and verified", func() {
				So(err, ShouldBeNil)
				So(stats.UsersGenerated, ShouldEqual, cfg.Users)
				So(stats.Submitted, ShouldEqual, cfg.Users*cfg.AttemptsPerUser)
				So(stats.Successful, ShouldEqual, stats.Submitted)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.UsersVerified, ShouldEqual, cfg.Users)
				So(stats.LeaderboardEntries, ShouldEqual, cfg.Users)
				So(store.Count(ctx), ShouldEqual, cfg.Users)
			})
		})

		Convey("When the store already holds other users", func() {
			_, err := store.Submit(ctx, model.Submission{UserID: "existing", Username: "x", Damage: 5})
			So(err, ShouldBeNil)
			cfg := testConfig(ts.URL)
			cfg.TopN = 10

			_, err = Run(ctx, cfg)

			Convey("Then verification should still pass", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestRunFailures(t *testing.T) {
	Convey("Given an unhealthy service", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		Convey("Then the probe should stop at the health check", func() {
			_, err := Run(context.Background(), testConfig(ts.URL))
			So(errors.Is(err, ErrUnhealthy), ShouldBeTrue)
		})
	})

	Convey("Given a service that rejects submissions", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		})
		mux.HandleFunc("POST /leaderboard/submit", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"detail":"boom","code":"internal_error"}`, http.StatusInternalServerError)
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()

		Convey("Then the probe should report the failures", func() {
			cfg := testConfig(ts.URL)
			stats, err := Run(context.Background(), cfg)
			So(errors.Is(err, ErrSubmissionsFailed), ShouldBeTrue)
			So(stats.Failed, ShouldEqual, cfg.Users*cfg.AttemptsPerUser)
		})
	})

	Convey("Given a service that drops attempts", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {})
		mux.HandleFunc("POST /leaderboard/submit", func(w http.ResponseWriter, _ *http.Request) {})
		mux.HandleFunc("GET /leaderboard/{user_id}", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"user_id":"` + r.PathValue("user_id") + `","total_damage":0,"attempts":1,"rank":1}`))
		})
		ts := httptest.NewServer(mux)
		defer ts.Close()

		Convey("Then verification should flag the mismatch", func() {
			cfg := testConfig(ts.URL)
			cfg.MaxDamage = 0
			_, err := Run(context.Background(), cfg)
			So(errors.Is(err, ErrEntryMismatch), ShouldBeTrue)
		})
	})

	Convey("Given invalid counts", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		defer ts.Close()

		Convey("Then generation should fail", func() {
			cfg := testConfig(ts.URL)
			cfg.Users = 0
			_, err := Run(context.Background(), cfg)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestChecks(t *testing.T) {
	Convey("Given leaderboard slices", t, func() {
		Convey("Then ascending damage should pass the ordering check", func() {
			top := []model.LeaderboardEntry{{TotalDamage: 0}, {TotalDamage: 0}, {TotalDamage: 20}}
			So(checkOrdering(top), ShouldBeNil)
		})

		Convey("Then descending damage should fail the ordering check", func() {
			top := []model.LeaderboardEntry{{TotalDamage: 30}, {TotalDamage: 10}}
			So(errors.Is(checkOrdering(top), ErrOrdering), ShouldBeTrue)
		})

		Convey("Then a rank that disagrees with the position should fail", func() {
			top := []model.LeaderboardEntry{{UserID: "a"}, {UserID: "b"}}
			ranked := map[string]repository.RankedEntry{
				"b": {LeaderboardEntry: model.LeaderboardEntry{UserID: "b"}, Rank: 3},
			}
			So(errors.Is(checkRanks(top, ranked), ErrRankMismatch), ShouldBeTrue)
		})

		Convey("Then users from other runs should be ignored", func() {
			top := []model.LeaderboardEntry{{UserID: "other"}}
			So(checkRanks(top, map[string]repository.RankedEntry{}), ShouldBeNil)
		})
	})
}

func TestGenerateSubmissions(t *testing.T) {
	Convey("Given a generation config", t, func() {
		cfg := &Config{Users: 12, AttemptsPerUser: 3, MaxDamage: 50}
		stats := &Stats{}

		subs, expected, err := generateSubmissions(context.Background(), cfg, stats)

		Convey("Then totals should match the generated submissions", func() {
			So(err, ShouldBeNil)
			So(len(subs), ShouldEqual, 36)
			So(len(expected), ShouldEqual, 12)
			So(stats.UsersGenerated, ShouldEqual, 12)

			sums := map[string]int{}
			for _, s := range subs {
				So(s.Damage, ShouldBeBetweenOrEqual, 0, cfg.MaxDamage)
				sums[s.UserID] += s.Damage
			}
			for id, exp := range expected {
				So(exp.Attempts, ShouldEqual, 3)
				So(exp.TotalDamage, ShouldEqual, sums[id])
			}
		})
	})

	Convey("Given a canceled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then generation should stop", func() {
			_, _, err := generateSubmissions(ctx, &Config{Users: 2, AttemptsPerUser: 1}, &Stats{})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}

func TestAttemptDamage(t *testing.T) {
	Convey("Given each speaker profile", t, func() {
		Convey("Then damage should stay in range", func() {
			for p := 0; p < profileCount; p++ {
				for i := 0; i < 50; i++ {
					So(attemptDamage(p, 60), ShouldBeBetweenOrEqual, 0, 60)
				}
			}
			So(attemptDamage(profileFluent, 60), ShouldEqual, 0)
			So(attemptDamage(profileWide, 0), ShouldEqual, 0)
			So(attemptDamage(profileWide, 5), ShouldBeBetweenOrEqual, 0, 5)
		})
	})
}
