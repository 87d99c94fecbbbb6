package venue

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
)

// SimClient is a deterministic in-process venue. Quotes fill at a fixed
// price table and swaps return base58 pseudo-signatures. Used for paper
// wiring and tests; optional failure injection exercises the error paths.
type SimClient struct {
	mu     sync.Mutex
	prices map[string]float64 // out-asset per in-asset unit
	seq    uint64

	ready    bool
	QuoteErr error
	SwapErr  error
}

// NewSimClient creates a simulated venue. ready controls IsReadyForLive.
func NewSimClient(ready bool) *SimClient {
	return &SimClient{
		prices: make(map[string]float64),
		ready:  ready,
	}
}

// Compile-time interface check.
var _ Client = (*SimClient)(nil)

// SetRate sets the out-asset amount received per unit of in-asset.
func (c *SimClient) SetRate(inAsset, outAsset string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[inAsset+"/"+outAsset] = rate
}

// Quote prices the swap against the configured rate table; unknown pairs
// quote 1:1.
func (c *SimClient) Quote(_ context.Context, req QuoteRequest) (*Quote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.QuoteErr != nil {
		return nil, c.QuoteErr
	}

	rate, ok := c.prices[req.InAsset+"/"+req.OutAsset]
	if !ok {
		rate = 1
	}
	return &Quote{
		InAsset:     req.InAsset,
		OutAsset:    req.OutAsset,
		InAmount:    req.Amount,
		OutAmount:   req.Amount * rate,
		SlippageBps: req.SlippageBps,
	}, nil
}

// SwapFromQuote returns a deterministic pseudo-signature derived from the
// quote and a sequence number.
func (c *SimClient) SwapFromQuote(_ context.Context, quote *Quote, feeAccount string) (*SwapResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SwapErr != nil {
		return nil, c.SwapErr
	}

	c.seq++
	seed := fmt.Sprintf("%s|%s|%v|%v|%s|%d",
		quote.InAsset, quote.OutAsset, quote.InAmount, quote.OutAmount, feeAccount, c.seq)
	sum := sha256.Sum256([]byte(seed))
	// Solana signatures are 64 bytes; double the digest for a plausible length.
	sig := append(sum[:], sum[:]...)

	return &SwapResult{
		TxSignature: base58.Encode(sig),
		Simulated:   true,
	}, nil
}

// IsReadyForLive reports the configured readiness.
func (c *SimClient) IsReadyForLive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}
