// File: cmd/seed/main.go
//
// Dev seeding: opens funded token accounts, creates a few sample plans,
// and prints bearer tokens for the seeded identities.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/authority"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/infra/api"
	pg "subscription-billing/internal/infra/db/postgres"
	"subscription-billing/internal/usecase"
)

const (
	seedMint       = "mint-usd"
	seedOwner      = "acct-seed-owner"
	seedSubscriber = "acct-seed-subscriber"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	planRepo := pg.NewPlanRepo(pool)
	ledger := pg.NewTokenLedger(pool)
	txm := pg.NewTxManager(pool)
	planUC := usecase.NewPlanUseCase(planRepo, ledger, txm)

	// If plans already exist, do nothing
	plans, err := planUC.List(ctx)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (term=%s, price=%d)\n", p.Code, p.Term, p.Price)
		}
		return
	}

	// Token accounts for the seeded identities
	openAccount(ctx, ledger, "acct-seed-owner-payout", seedOwner, 0)
	openAccount(ctx, ledger, "acct-seed-payer", seedSubscriber, 1_000_000)

	// Sample plans covering the short and long terms
	seed := []struct {
		Code  string
		Term  model.Term
		Price int64
	}{
		{"starter-weekly", model.TermOneWeek, 5_000},
		{"pro-monthly", model.TermThirtyDays, 15_000},
		{"ultra-yearly", model.TermOneYear, 120_000},
	}
	for _, s := range seed {
		p, err := planUC.Create(ctx, seedOwner, s.Code, s.Price, s.Term, seedMint, "acct-seed-owner-payout")
		if err != nil {
			log.Fatalf("create plan %s: %v", s.Code, err)
		}
		fmt.Printf("created plan %s (%s)\n", p.Code, p.ID)
	}

	// Bearer tokens for poking the API by hand
	auth := api.NewAuthManager(cfg.API.AuthSecret, 24*time.Hour)
	for _, subject := range []string{seedOwner, seedSubscriber} {
		tok, err := auth.Mint(subject)
		if err != nil {
			log.Fatalf("mint token for %s: %v", subject, err)
		}
		fmt.Printf("token %s: %s\n", subject, tok)
	}
}

func openAccount(ctx context.Context, ledger *pg.TokenLedger, id, owner string, balance int64) {
	err := ledger.OpenAccount(ctx, nil, id, seedMint, authority.Signer(owner))
	if err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		log.Fatalf("open account %s: %v", id, err)
	}
	if balance > 0 {
		if err := ledger.MintTo(ctx, nil, id, balance); err != nil {
			log.Fatalf("fund account %s: %v", id, err)
		}
	}
}
