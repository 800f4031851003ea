package main

import (
	"context"
	"log"
	"time"

	tieredcache "github.com/avatarctic/tiered-cache"
	config "github.com/avatarctic/tiered-cache/configs"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	runID := uuid.New().String()
	logger.WithField("run_id", runID).Info("Starting tiered cache demo...")

	cache := tieredcache.New(cfg, logger)
	defer func() {
		if err := cache.Close(); err != nil {
			logger.WithError(err).Warn("cache teardown reported an error")
		}
	}()

	status := cache.HealthStatus()
	logger.WithFields(logrus.Fields{"memory": status.Memory, "remote": status.Remote}).
		Info("cache tiers available")

	ctx := context.Background()

	// Plain round-trip
	userKey := "user:" + runID
	cache.Set(ctx, userKey, profile{ID: runID, Name: "Ann"}, 5*time.Minute)
	if p, ok := tieredcache.Get[profile](ctx, cache, userKey); ok {
		logger.WithField("name", p.Name).Info("round-trip hit")
	}

	// Read-through memoization: the second call must not recompute.
	computed := 0
	expensive := func() (profile, error) {
		computed++
		time.Sleep(50 * time.Millisecond) // stand-in for real work
		return profile{ID: runID, Name: "computed"}, nil
	}
	for i := 0; i < 2; i++ {
		if _, err := tieredcache.Cached(ctx, cache, "expensive:"+runID, expensive, tieredcache.Options{TTL: time.Minute}); err != nil {
			logger.WithError(err).Error("memoized computation failed")
		}
	}
	logger.WithField("compute_calls", computed).Info("memoization exercised")

	// Rate-limit style counter
	counterKey := "demo:requests:" + runID
	for i := 0; i < 3; i++ {
		n := cache.IncrWithExpire(ctx, counterKey, time.Minute)
		logger.WithField("count", n).Debug("counter bumped")
	}

	// Bulk invalidation by pattern
	deleted := cache.InvalidateCachePattern(ctx, "expensive:*")
	logger.WithField("deleted", deleted).Info("pattern invalidation done")

	for tier, err := range cache.Ping(ctx) {
		if err != nil {
			logger.WithField("tier", tier).WithError(err).Warn("tier unhealthy")
		} else {
			logger.WithField("tier", tier).Info("tier healthy")
		}
	}

	logger.Info("Demo finished")
}
