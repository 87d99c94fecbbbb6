// Package pricefeed ingests market marks over WebSocket and persists them
// as the current price used by risk admission and accounting.
package pricefeed

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"solana-agent-arena/internal/store"
)

// Config configures feed behavior.
type Config struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the backoff between reconnect attempts.
	MaxReconnectDelay time.Duration
	// ReadTimeout bounds waiting for a tick before the connection is
	// considered dead.
	ReadTimeout time.Duration
}

// DefaultConfig returns default feed configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
	}
}

// Tick is one mark update on the wire.
type Tick struct {
	Symbol   string  `json:"symbol"`
	PriceUsd float64 `json:"price_usd"`
}

// Feed subscribes to a tick stream and writes marks into the store.
type Feed struct {
	endpoint string
	store    *store.Store
	config   Config
	logger   *log.Logger
}

// Options configures a Feed.
type Options struct {
	Endpoint string
	Store    *store.Store
	Config   *Config
	Logger   *log.Logger
}

// New creates a price feed.
func New(opts Options) *Feed {
	config := DefaultConfig()
	if opts.Config != nil {
		config = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Feed{
		endpoint: opts.Endpoint,
		store:    opts.Store,
		config:   config,
		logger:   logger,
	}
}

// Run consumes ticks until the context is canceled, reconnecting with
// exponential backoff on connection loss. Malformed or non-positive ticks
// are logged and dropped; they never fail the feed.
func (f *Feed) Run(ctx context.Context) error {
	delay := f.config.ReconnectDelay

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.endpoint, nil)
		if err != nil {
			f.logger.Printf("dial %s: %v (retrying in %s)", f.endpoint, err, delay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > f.config.MaxReconnectDelay {
				delay = f.config.MaxReconnectDelay
			}
			continue
		}

		f.logger.Printf("connected to %s", f.endpoint)
		delay = f.config.ReconnectDelay
		f.consume(ctx, conn)
		conn.Close()
	}
}

// consume reads ticks from one connection until it breaks.
func (f *Feed) consume(ctx context.Context, conn *websocket.Conn) {
	for {
		if err := ctx.Err(); err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))

		_, data, err := conn.ReadMessage()
		if err != nil {
			f.logger.Printf("read tick: %v", err)
			return
		}

		var tick Tick
		if err := json.Unmarshal(data, &tick); err != nil {
			f.logger.Printf("drop malformed tick: %v", err)
			continue
		}
		if tick.Symbol == "" || tick.PriceUsd <= 0 {
			f.logger.Printf("drop invalid tick %+v", tick)
			continue
		}

		if err := f.store.SetMarketPrice(ctx, tick.Symbol, tick.PriceUsd); err != nil {
			f.logger.Printf("set mark %s: %v", tick.Symbol, err)
		}
	}
}
