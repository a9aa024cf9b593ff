package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"handover/internal/config"
	"handover/internal/repository"
	"handover/internal/service"
)

// audit recomputes per-item request counts and reports drift against the
// stored counters. Exit code 1 means at least one item diverged.
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Store.Backend != "redis" {
		log.Fatalf("audit requires the redis store backend")
	}

	client := repository.NewRedisClient(cfg.Redis)
	store := repository.NewRedisStore(client)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}

	drifts, err := service.AuditCounters(ctx, store)
	if err != nil {
		log.Fatalf("audit failed: %v", err)
	}

	if len(drifts) == 0 {
		fmt.Println("all request counters are consistent")
		return
	}

	for _, d := range drifts {
		fmt.Printf("item %s (%s): counter=%d active_requests=%d drift=%d\n",
			d.ItemID, d.ItemName, d.RequestCount, d.ActiveRequests, d.Drift)
	}
	os.Exit(1)
}
