// Package fees computes platform execution fees and the fee parameters
// forwarded to the swap venue.
package fees

import "solana-agent-arena/internal/money"

// DefaultFeeBps is the platform execution fee when no override is set.
const DefaultFeeBps = 25

// VenueFeeParams are the fee parameters attached to live venue calls.
type VenueFeeParams struct {
	FeeBps     int64
	FeeAccount string // base58 pubkey receiving venue-side fees, optional
}

// Calculator computes execution fees. Implementations are stateless and
// safe for concurrent use.
type Calculator interface {
	// ExecutionFeeUsd returns the platform fee for an admitted notional.
	ExecutionFeeUsd(notionalUsd float64) float64

	// VenueFeeParams returns the fee parameters for live venue calls.
	VenueFeeParams() VenueFeeParams
}

// BpsCalculator charges a flat basis-point fee on notional.
type BpsCalculator struct {
	feeBps     int64
	feeAccount string
}

// Option configures a BpsCalculator.
type Option func(*BpsCalculator)

// WithFeeBps overrides the default fee rate.
func WithFeeBps(bps int64) Option {
	return func(c *BpsCalculator) {
		c.feeBps = bps
	}
}

// WithFeeAccount sets the venue-side fee account.
func WithFeeAccount(account string) Option {
	return func(c *BpsCalculator) {
		c.feeAccount = account
	}
}

// NewBpsCalculator creates a calculator charging DefaultFeeBps unless
// overridden.
func NewBpsCalculator(opts ...Option) *BpsCalculator {
	c := &BpsCalculator{feeBps: DefaultFeeBps}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Calculator = (*BpsCalculator)(nil)

// ExecutionFeeUsd returns feeBps basis points of notionalUsd, rounded to
// the monetary precision.
func (c *BpsCalculator) ExecutionFeeUsd(notionalUsd float64) float64 {
	if notionalUsd <= 0 {
		return 0
	}
	return money.BpsOf(notionalUsd, c.feeBps)
}

// VenueFeeParams returns the configured venue fee parameters.
func (c *BpsCalculator) VenueFeeParams() VenueFeeParams {
	return VenueFeeParams{FeeBps: c.feeBps, FeeAccount: c.feeAccount}
}
