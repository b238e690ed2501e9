package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/ghostslot/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.ReservationTTLSeconds, convey.ShouldEqual, 600)
			convey.So(cfg.ReservationTTL(), convey.ShouldEqual, 10*time.Minute)
			convey.So(cfg.MaxConflictRetries, convey.ShouldEqual, 3)
			convey.So(cfg.MailboxSize, convey.ShouldEqual, 1024)
			convey.So(cfg.DefaultPoolSize, convey.ShouldEqual, 10)
			convey.So(cfg.UniqueSkillsets, convey.ShouldBeTrue)
			convey.So(cfg.AuthMode, convey.ShouldEqual, config.AuthHeader)
			convey.So(cfg.AuthHeader, convey.ShouldEqual, "X-Requester-ID")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs the service cannot run with", t, func() {
		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown store", func(c *config.Config) { c.Store = "etcd" }},
			{"redis without addr", func(c *config.Config) { c.Store = config.StoreRedis; c.RedisAddr = "" }},
			{"zero ttl", func(c *config.Config) { c.ReservationTTLSeconds = 0 }},
			{"negative retries", func(c *config.Config) { c.MaxConflictRetries = -1 }},
			{"zero mailbox", func(c *config.Config) { c.MailboxSize = 0 }},
			{"zero pool size", func(c *config.Config) { c.DefaultPoolSize = 0 }},
			{"unknown auth mode", func(c *config.Config) { c.AuthMode = "oauth" }},
			{"token without table", func(c *config.Config) { c.AuthMode = config.AuthToken }},
			{"rate without burst", func(c *config.Config) { c.RateLimitBurst = 0 }},
			{"bad cohort key", func(c *config.Config) { c.Cohorts = map[string]int{"first": 3} }},
			{"negative pool", func(c *config.Config) { c.Cohorts = map[string]int{"2": -1} }},
		}

		for _, tc := range cases {
			convey.Convey("Then validation rejects "+tc.name, func() {
				cfg := config.New()
				tc.mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})

	convey.Convey("Given a disabled rate limiter", t, func() {
		cfg := config.New()
		cfg.RateLimitRPS = 0
		cfg.RateLimitBurst = 0

		convey.Convey("Then the burst is not required", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given configured cohorts", t, func() {
		cfg := config.New()
		cfg.Cohorts = map[string]int{"1": 3, " 12 ": 0}

		convey.Convey("Then their keys parse as cohort numbers", func() {
			sizes, err := cfg.CohortSizes()
			convey.So(err, convey.ShouldBeNil)
			convey.So(sizes, convey.ShouldResemble, map[int]int{1: 3, 12: 0})
		})
	})
}
