package domain

// RiskLimits holds per-agent pre-trade admission limits.
// Set at registration, overridable per field; a zero value disables that check.
type RiskLimits struct {
	MaxPositionSizePct  float64 `json:"max_position_size_pct"`
	MaxOrderNotionalUsd float64 `json:"max_order_notional_usd"`
	MaxGrossExposureUsd float64 `json:"max_gross_exposure_usd"`
	DailyLossCapUsd     float64 `json:"daily_loss_cap_usd"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	CooldownSeconds     int64   `json:"cooldown_seconds"`
}

// Position is an open holding in one symbol.
// Quantity is always > 0; fully sold positions are removed from the agent.
type Position struct {
	Symbol           string  `json:"symbol"`
	Quantity         float64 `json:"quantity"`
	AvgEntryPriceUsd float64 `json:"avg_entry_price_usd"` // volume-weighted cost basis
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}

// Agent is a registered trading participant and the unit of financial accounting.
// Mutated only inside store transactions; never deleted.
type Agent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Credential string `json:"credential"`
	StrategyID string `json:"strategy_id,omitempty"`

	StartingCapitalUsd float64 `json:"starting_capital_usd"`
	CashUsd            float64 `json:"cash_usd"`
	RealizedPnlUsd     float64 `json:"realized_pnl_usd"`
	PeakEquityUsd      float64 `json:"peak_equity_usd"`

	RiskLimits RiskLimits           `json:"risk_limits"`
	Positions  map[string]*Position `json:"positions"` // keyed by symbol

	// DailyRealizedPnlUsd buckets realized PnL by UTC day key ("2006-01-02").
	DailyRealizedPnlUsd map[string]float64 `json:"daily_realized_pnl_usd,omitempty"`

	// RiskRejectionsByReason counts admission rejections by stable reason string.
	RiskRejectionsByReason map[string]int64 `json:"risk_rejections_by_reason,omitempty"`

	LastTradeAt int64 `json:"last_trade_at,omitempty"` // ms, last successful fill
	CreatedAt   int64 `json:"created_at"`              // ms
	UpdatedAt   int64 `json:"updated_at"`              // ms
}

// Clone returns a deep copy of the agent.
func (a *Agent) Clone() *Agent {
	cp := *a
	cp.Positions = make(map[string]*Position, len(a.Positions))
	for sym, pos := range a.Positions {
		cp.Positions[sym] = pos.Clone()
	}
	cp.DailyRealizedPnlUsd = cloneFloatMap(a.DailyRealizedPnlUsd)
	cp.RiskRejectionsByReason = cloneIntMap(a.RiskRejectionsByReason)
	return &cp
}

// EquityUsd returns cash plus mark-to-market value of all positions.
// Positions without a mark in prices fall back to their average entry price.
func (a *Agent) EquityUsd(prices map[string]float64) float64 {
	equity := a.CashUsd
	for sym, pos := range a.Positions {
		mark := pos.AvgEntryPriceUsd
		if p, ok := prices[sym]; ok && p > 0 {
			mark = p
		}
		equity += pos.Quantity * mark
	}
	return equity
}

// GrossExposureUsd returns the total absolute notional across positions.
func (a *Agent) GrossExposureUsd(prices map[string]float64) float64 {
	total := 0.0
	for sym, pos := range a.Positions {
		mark := pos.AvgEntryPriceUsd
		if p, ok := prices[sym]; ok && p > 0 {
			mark = p
		}
		n := pos.Quantity * mark
		if n < 0 {
			n = -n
		}
		total += n
	}
	return total
}

func cloneFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	cp := make(map[string]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func cloneIntMap(m map[string]int64) map[string]int64 {
	if m == nil {
		return nil
	}
	cp := make(map[string]int64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
