// Package main runs the trading arena core: the state store, the intent
// and execution services, the scheduling worker, and the optional price
// feed and analytics archive around them.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"solana-agent-arena/internal/agents"
	"solana-agent-arena/internal/archive"
	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/execution"
	"solana-agent-arena/internal/fees"
	"solana-agent-arena/internal/intent"
	"solana-agent-arena/internal/observability"
	"solana-agent-arena/internal/pricefeed"
	"solana-agent-arena/internal/store"
	storefile "solana-agent-arena/internal/store/file"
	storepg "solana-agent-arena/internal/store/postgres"
	"solana-agent-arena/internal/venue"
	"solana-agent-arena/internal/worker"
)

func main() {
	stateFile := flag.String("state-file", envOr("ARENA_STATE_FILE", "data/arena-state.json"), "Path of the persisted state document")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "Persist state to PostgreSQL instead of a file")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for the execution archive (optional)")
	priceWSEndpoint := flag.String("price-ws", os.Getenv("PRICE_WS_ENDPOINT"), "WebSocket endpoint of the market price feed (optional)")
	venueEndpoint := flag.String("venue-endpoint", os.Getenv("VENUE_ENDPOINT"), "Swap venue API endpoint; empty runs the simulated venue")
	venueSigner := flag.String("venue-signer", os.Getenv("VENUE_SIGNER_PUBKEY"), "Base58 signer pubkey for live swaps")
	feeAccount := flag.String("fee-account", os.Getenv("VENUE_FEE_ACCOUNT"), "Base58 fee account forwarded to the venue (optional)")
	feeBps := flag.Int64("fee-bps", fees.DefaultFeeBps, "Platform execution fee in basis points")
	defaultMode := flag.String("default-mode", "paper", "Execution mode for intents that request none (paper|live)")
	liveEnabled := flag.Bool("live", false, "Platform-side flag allowing live execution")
	processInterval := flag.Duration("process-interval", worker.DefaultInterval, "Pending-intent processing cadence")
	listenAddr := flag.String("listen-addr", envOr("ARENA_LISTEN_ADDR", ":8080"), "HTTP API address")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence backend: Postgres when a DSN is given, file otherwise.
	var backend store.Backend
	if *postgresDSN != "" {
		pg, err := storepg.New(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("postgres backend: %v", err)
		}
		defer pg.Close()
		backend = pg
		logger.Printf("persisting state to postgres")
	} else {
		backend = storefile.New(*stateFile)
		logger.Printf("persisting state to %s", *stateFile)
	}

	metrics := observability.NewMetrics("agent_arena")

	st, err := store.Open(ctx, store.Options{
		Backend: backend,
		Metrics: metrics,
		Logger:  log.New(os.Stdout, "[store] ", log.LstdFlags),
	})
	if err != nil {
		logger.Fatalf("open store: %v", err)
	}

	// Venue client: real HTTP client when an endpoint is configured,
	// simulated venue otherwise. The sim venue never reports live-ready.
	var venueClient venue.Client
	if *venueEndpoint != "" {
		venueClient = venue.NewHTTPClient(*venueEndpoint, venue.WithSigner(*venueSigner))
	} else {
		venueClient = venue.NewSimClient(false)
		logger.Printf("no venue endpoint configured, using simulated venue")
	}

	feeOpts := []fees.Option{fees.WithFeeBps(*feeBps)}
	if *feeAccount != "" {
		if err := venue.ValidatePubkey(*feeAccount); err != nil {
			logger.Fatalf("invalid fee account: %v", err)
		}
		feeOpts = append(feeOpts, fees.WithFeeAccount(*feeAccount))
	}
	feeCalc := fees.NewBpsCalculator(feeOpts...)

	executor := execution.NewService(execution.Options{
		Store:       st,
		Venue:       venueClient,
		Fees:        feeCalc,
		Metrics:     metrics,
		Logger:      log.New(os.Stdout, "[execution] ", log.LstdFlags),
		DefaultMode: domain.Mode(*defaultMode),
		LiveEnabled: *liveEnabled,
	})

	agentSvc := agents.NewService(agents.Options{
		Store:  st,
		Logger: log.New(os.Stdout, "[agents] ", log.LstdFlags),
	})
	intentSvc := intent.NewService(intent.Options{
		Store:   st,
		Metrics: metrics,
		Logger:  log.New(os.Stdout, "[intent] ", log.LstdFlags),
	})

	var archiver worker.Archiver
	if *clickhouseDSN != "" {
		conn, err := archive.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("clickhouse archive: %v", err)
		}
		defer conn.Close()
		archiver = archive.NewArchiver(conn)
		logger.Printf("archiving executions to clickhouse")
	}

	w := worker.New(worker.Options{
		Store:    st,
		Executor: executor,
		Archiver: archiver,
		Metrics:  metrics,
		Logger:   log.New(os.Stdout, "[worker] ", log.LstdFlags),
		Interval: *processInterval,
	})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Printf("worker stopped: %v", err)
		}
	}()

	if *priceWSEndpoint != "" {
		feed := pricefeed.New(pricefeed.Options{
			Endpoint: *priceWSEndpoint,
			Store:    st,
			Logger:   log.New(os.Stdout, "[pricefeed] ", log.LstdFlags),
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Printf("price feed stopped: %v", err)
			}
		}()
	}

	apiMux := http.NewServeMux()
	newAPI(st, agentSvc, intentSvc).routes(apiMux)
	apiSrv := &http.Server{Addr: *listenAddr, Handler: apiMux}
	go func() {
		logger.Printf("api listening on %s", *listenAddr)
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("api server: %v", err)
		}
	}()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", observability.Handler())
	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: metricsMux}
	go func() {
		logger.Printf("metrics listening on %s", *metricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Printf("received signal %v, shutting down", sig)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	apiSrv.Shutdown(shutdownCtx)
	metricsSrv.Shutdown(shutdownCtx)
	wg.Wait()
	logger.Printf("shutdown complete")
}

// envOr returns the environment value for key, or fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
