// File: cmd/crank/main.go
//
// Standalone charge crank. Runs the due-subscription sweep on its cron
// schedule without serving the API; useful when billing throughput needs
// to scale independently of the HTTP tier.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"subscription-billing/internal/config"
	pg "subscription-billing/internal/infra/db/postgres"
	"subscription-billing/internal/infra/logging"
	"subscription-billing/internal/infra/metrics"
	red "subscription-billing/internal/infra/redis"
	"subscription-billing/internal/infra/sched"
	"subscription-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	metrics.MustRegister()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	planRepo := pg.NewPlanRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	ledger := pg.NewTokenLedger(pool)
	txm := pg.NewTxManager(pool)
	chargeUC := usecase.NewChargeUseCase(planRepo, subRepo, ledger, txm)

	worker := sched.NewChargeWorker(cfg.Crank, subRepo, chargeUC, red.NewLocker(redisClient), logger)
	go func() { _ = worker.Run(ctx) }()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}
