// Package venue is the client side of the external swap venue. The core
// treats the venue as opaque: it asks for a quote, submits a swap built
// from that quote, and records the returned transaction signature.
package venue

import "context"

// QuoteRequest describes the swap being priced.
type QuoteRequest struct {
	InAsset     string
	OutAsset    string
	Amount      float64
	SlippageBps int64
	FeeBps      int64 // optional platform fee forwarded to the venue
}

// Quote is a priced swap returned by the venue. Raw is carried back
// unmodified on SwapFromQuote so the venue can validate its own quote.
type Quote struct {
	InAsset     string
	OutAsset    string
	InAmount    float64
	OutAmount   float64
	SlippageBps int64
	Raw         []byte
}

// SwapResult is the outcome of submitting a swap.
type SwapResult struct {
	TxSignature string
	Simulated   bool
}

// Client is the narrow capability interface the execution service consumes.
// Implementations must be safe for concurrent use.
type Client interface {
	// Quote prices a swap.
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)

	// SwapFromQuote submits a swap built from a previously obtained quote.
	// feeAccount optionally routes venue-side fees.
	SwapFromQuote(ctx context.Context, quote *Quote, feeAccount string) (*SwapResult, error)

	// IsReadyForLive reports whether the client is configured for real
	// on-chain execution. A client that is not ready gates off live mode.
	IsReadyForLive() bool
}
