package execution

import (
	"fmt"

	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/money"
)

// Accounting failure reasons. Stable identifiers surfaced in execution
// records and intent status reasons.
const (
	ReasonInsufficientCash      = "insufficient_cash_for_buy"
	ReasonInsufficientInventory = "insufficient_inventory_for_sell"
)

// AccountingError is an expected, recoverable fill failure. It never
// escapes the pipeline as a fault; it becomes a failed execution record.
type AccountingError struct {
	Reason string
}

// Error implements the error interface.
func (e *AccountingError) Error() string {
	return e.Reason
}

// fill is one admitted execution to book against an agent.
type fill struct {
	symbol   string
	side     domain.Side
	quantity float64
	priceUsd float64
	feeUsd   float64
}

// fillOutcome is the booked result of a successful fill.
type fillOutcome struct {
	// NetUsd is the signed cash delta: negative for buys, positive for sells.
	NetUsd         float64
	RealizedPnlUsd float64
}

// applyFill books one fill against the agent: cash, position cost basis,
// realized PnL, daily PnL bucket, and peak equity. On error the agent is
// untouched. Every monetary write is rounded to the fixed precision.
// Must run inside a store transaction.
func applyFill(agent *domain.Agent, f fill, nowMs int64, prices map[string]float64) (fillOutcome, error) {
	gross := money.Mul(f.quantity, f.priceUsd)

	var outcome fillOutcome
	switch f.side {
	case domain.SideBuy:
		totalCost := money.Add(gross, f.feeUsd)
		if agent.CashUsd < totalCost {
			return outcome, &AccountingError{Reason: ReasonInsufficientCash}
		}
		agent.CashUsd = money.Sub(agent.CashUsd, totalCost)

		pos, ok := agent.Positions[f.symbol]
		if !ok {
			pos = &domain.Position{Symbol: f.symbol}
			agent.Positions[f.symbol] = pos
		}
		// Volume-weighted cost basis across the old lot and this fill.
		oldCost := money.Mul(pos.Quantity, pos.AvgEntryPriceUsd)
		newQty := money.Add(pos.Quantity, f.quantity)
		pos.AvgEntryPriceUsd = money.Div(money.Add(oldCost, gross), newQty)
		pos.Quantity = newQty

		outcome.NetUsd = money.Round(-totalCost)

	case domain.SideSell:
		pos, ok := agent.Positions[f.symbol]
		if !ok || pos.Quantity < f.quantity {
			return outcome, &AccountingError{Reason: ReasonInsufficientInventory}
		}

		proceeds := money.Sub(gross, f.feeUsd)
		realized := money.Mul(money.Sub(f.priceUsd, pos.AvgEntryPriceUsd), f.quantity)

		agent.CashUsd = money.Add(agent.CashUsd, proceeds)
		agent.RealizedPnlUsd = money.Add(agent.RealizedPnlUsd, realized)

		pos.Quantity = money.Sub(pos.Quantity, f.quantity)
		if pos.Quantity <= 0 {
			delete(agent.Positions, f.symbol)
		}

		day := domain.DayKey(nowMs)
		if agent.DailyRealizedPnlUsd == nil {
			agent.DailyRealizedPnlUsd = make(map[string]float64)
		}
		agent.DailyRealizedPnlUsd[day] = money.Add(agent.DailyRealizedPnlUsd[day], realized)

		outcome.NetUsd = proceeds
		outcome.RealizedPnlUsd = realized

	default:
		// Sides are validated at intent creation; refuse to certify a
		// fill that was never booked.
		return outcome, fmt.Errorf("unknown side %q", f.side)
	}

	agent.LastTradeAt = nowMs
	agent.UpdatedAt = nowMs

	equity := money.Round(agent.EquityUsd(prices))
	if equity > agent.PeakEquityUsd {
		agent.PeakEquityUsd = equity
	}
	return outcome, nil
}
