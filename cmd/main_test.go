package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ghostslot/internal/adapters/http/api"
	"github.com/okian/ghostslot/internal/adapters/repository"
	"github.com/okian/ghostslot/internal/auth"
	"github.com/okian/ghostslot/internal/config"
	"github.com/okian/ghostslot/internal/domain/model"
	"github.com/okian/ghostslot/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given configuration from the environment", t, func() {
		_ = os.Setenv("GHOSTSLOT_ADDR", ":8080")
		_ = os.Setenv("GHOSTSLOT_DEFAULT_POOL_SIZE", "4")
		_ = os.Setenv("GHOSTSLOT_RESERVATION_TTL_SECONDS", "60")
		defer func() {
			_ = os.Unsetenv("GHOSTSLOT_ADDR")
			_ = os.Unsetenv("GHOSTSLOT_DEFAULT_POOL_SIZE")
			_ = os.Unsetenv("GHOSTSLOT_RESERVATION_TTL_SECONDS")
		}()

		cfg, err := config.Load(context.Background())
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the service is built with it", func() {
			svc, err := newService(cfg, repository.NewMemoryStore(), logger.Get())
			convey.So(err, convey.ShouldBeNil)
			stats := svc.GetStats()
			convey.So(stats["defaultPoolSize"], convey.ShouldEqual, 4)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.ReservationTTL(), convey.ShouldEqual, time.Minute)
		})

		convey.Convey("And a bad cohort key is rejected", func() {
			cfg.Cohorts = map[string]int{"zero": 3}
			_, err := newService(cfg, repository.NewMemoryStore(), logger.Get())
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestNewStore(t *testing.T) {
	convey.Convey("Given a store configuration", t, func() {
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When the memory backend is selected", func() {
			store, err := newStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = store.Close() }()

			convey.Convey("Then a memory store is returned", func() {
				_, ok := store.(*repository.MemoryStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When redis is reachable", func() {
			mr := miniredis.RunT(t)
			cfg.Store = config.StoreRedis
			cfg.RedisAddr = mr.Addr()
			store, err := newStore(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = store.Close() }()

			convey.Convey("Then a redis store is returned", func() {
				_, ok := store.(*repository.RedisStore)
				convey.So(ok, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When redis is down", func() {
			mr := miniredis.RunT(t)
			addr := mr.Addr()
			mr.Close()
			cfg.Store = config.StoreRedis
			cfg.RedisAddr = addr
			_, err := newStore(ctx, cfg)

			convey.Convey("Then startup fails as storage unavailable", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, addr)
				convey.So(errors.Is(err, model.ErrStorageUnavailable), convey.ShouldBeTrue)
			})
		})
	})
}

func TestNewAuthenticator(t *testing.T) {
	convey.Convey("Given an auth configuration", t, func() {
		cfg := config.New()

		convey.Convey("Header mode trusts the configured header", func() {
			cfg.AuthHeader = "X-User"
			a := newAuthenticator(cfg)
			h, ok := a.(*auth.HeaderAuthenticator)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(h.Header(), convey.ShouldEqual, "X-User")
		})

		convey.Convey("Token mode uses bearer tokens", func() {
			cfg.AuthMode = config.AuthToken
			cfg.AuthTokens = map[string]string{"t": "alice"}
			_, ok := newAuthenticator(cfg).(*auth.TokenAuthenticator)
			convey.So(ok, convey.ShouldBeTrue)
		})
	})
}

func TestNewHandler(t *testing.T) {
	convey.Convey("Given the assembled HTTP handler", t, func() {
		cfg := config.New()
		cfg.Cohorts = map[string]int{"1": 2}
		svc, err := newService(cfg, repository.NewMemoryStore(), logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
		defer svc.Stop()

		handler := newHandler(svc, newAuthenticator(cfg), api.NewLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

		get := func(path string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			return w
		}

		convey.Convey("Then the API, docs and metrics are served", func() {
			convey.So(get("/reservation/1").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/cohorts").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get("/healthz").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("And a reservation goes through the whole chain", func() {
			req := httptest.NewRequest(http.MethodPost, "/reservation/1/reserve", strings.NewReader(""))
			req.Header.Set(auth.DefaultHeader, "alice")
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get(api.RequestIDHeader), convey.ShouldNotBeEmpty)
		})
	})
}

func TestConfigureLogging(t *testing.T) {
	convey.Convey("Given a configuration with an invalid log level", t, func() {
		cfg := config.New()
		cfg.LogLevel = "loud"
		defer func() { _ = logger.Init() }()

		convey.Convey("Then logging falls back without failing", func() {
			convey.So(configureLogging(cfg), convey.ShouldBeNil)
		})

		convey.Convey("And json output can be selected", func() {
			cfg.LogFormat = "json"
			convey.So(configureLogging(cfg), convey.ShouldBeNil)
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
