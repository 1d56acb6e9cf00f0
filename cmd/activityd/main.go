package main

import (
	"log"
	"os"
	"time"

	"github.com/crunchio/activityd/internal/api"
	"github.com/crunchio/activityd/internal/config"
	"github.com/crunchio/activityd/internal/lifecycle"
	"github.com/crunchio/activityd/internal/pool"
	"github.com/crunchio/activityd/internal/store"
	"github.com/crunchio/activityd/internal/task"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("activityd: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"request_timeout", cfg.RequestTimeout.String(),
		"pool_size", cfg.PoolSize,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	workers := pool.New(cfg.PoolSize)
	ctrl := lifecycle.NewController(workers, db, logger)

	seed := uint64(time.Now().UnixNano())
	sim := task.NewSimulator(task.Options{
		Faults:      task.NewRandomFaults(seed, cfg.FaultRate),
		MinDuration: cfg.TaskMin,
		MaxDuration: cfg.TaskMax,
		Checkpoint:  cfg.TaskCheckpoint,
		Seed:        seed,
	}, logger)

	srv := api.NewServer(cfg.ListenAddr, db, ctrl, sim, cfg.RequestTimeout, logger)

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}

	// Let in-flight tasks finish so their outcomes are recorded.
	workers.Wait()
}
