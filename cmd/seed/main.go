// Package main seeds a state document with demo agents and initial marks,
// for local runs against the same persistence the server uses.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"

	"solana-agent-arena/internal/agents"
	"solana-agent-arena/internal/store"
	storefile "solana-agent-arena/internal/store/file"
	storepg "solana-agent-arena/internal/store/postgres"
)

func main() {
	stateFile := flag.String("state-file", envOr("ARENA_STATE_FILE", "data/arena-state.json"), "Path of the persisted state document")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "Seed a PostgreSQL-persisted state instead of a file")
	capital := flag.Float64("capital", 10_000, "Starting capital per demo agent (USD)")
	names := flag.String("agents", "momentum-1,meanrev-1,arb-1", "Comma-separated demo agent names")
	marks := flag.String("marks", "SOL=100,BONK=0.00002", "Comma-separated symbol=price initial marks")
	flag.Parse()

	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags)
	ctx := context.Background()

	var backend store.Backend
	if *postgresDSN != "" {
		pg, err := storepg.New(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("postgres backend: %v", err)
		}
		defer pg.Close()
		backend = pg
	} else {
		backend = storefile.New(*stateFile)
	}

	st, err := store.Open(ctx, store.Options{Backend: backend, Logger: logger})
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}

	svc := agents.NewService(agents.Options{Store: st, Logger: logger})
	for _, name := range strings.Split(*names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		agent, err := svc.Register(ctx, agents.RegisterInput{
			Name:               name,
			StartingCapitalUsd: *capital,
		})
		if err != nil {
			logger.Fatalf("register %s: %v", name, err)
		}
		logger.Printf("agent %s id=%s credential=%s", name, agent.ID, agent.Credential)
	}

	for _, pair := range strings.Split(*marks, ",") {
		sym, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			logger.Fatalf("parse mark %q: %v", pair, err)
		}
		if err := st.SetMarketPrice(ctx, strings.ToUpper(sym), price); err != nil {
			logger.Fatalf("set mark %s: %v", sym, err)
		}
		logger.Printf("mark %s = %v", strings.ToUpper(sym), price)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
