// Package risk is the pre-trade admission engine. Evaluate is a pure
// function over agent state, a candidate intent, and the current mark; it
// performs no I/O, so running it inside a store transaction makes the whole
// read-decide-mutate sequence atomic.
package risk

import (
	"time"

	"solana-agent-arena/internal/domain"
	"solana-agent-arena/internal/money"
)

// Rejection reason strings. These are stable identifiers: they feed the
// per-agent rejection counters and are surfaced verbatim to callers.
const (
	ReasonInvalidSize           = "invalid_size"
	ReasonMaxOrderNotional      = "max_order_notional"
	ReasonMaxPositionSize       = "max_position_size"
	ReasonMaxGrossExposure      = "max_gross_exposure"
	ReasonDailyLossCap          = "daily_loss_cap"
	ReasonMaxDrawdown           = "max_drawdown"
	ReasonCooldownActive        = "cooldown_active"
	ReasonInsufficientInventory = "insufficient_inventory"
)

// Decision is the outcome of evaluating one candidate intent.
type Decision struct {
	Approved    bool
	Quantity    float64 // executable size resolved from the intent
	NotionalUsd float64
	Reason      string // set when not approved
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Evaluate decides whether the intent may proceed against the given mark
// price and, if so, the exact executable size. Checks run in a fixed order
// and short-circuit on the first failure. prices carries current marks for
// equity and exposure computation; agent and intent are never mutated.
func Evaluate(agent *domain.Agent, intent *domain.TradeIntent, priceUsd float64, prices map[string]float64, now time.Time) Decision {
	limits := agent.RiskLimits

	// 1. Resolve size. Notional is authoritative when both are given.
	var quantity, notional float64
	switch {
	case intent.NotionalUsd > 0:
		notional = money.Round(intent.NotionalUsd)
		quantity = money.Div(notional, priceUsd)
	case intent.Quantity > 0:
		quantity = intent.Quantity
		notional = money.Mul(quantity, priceUsd)
	default:
		return deny(ReasonInvalidSize)
	}
	if quantity <= 0 || notional <= 0 {
		return deny(ReasonInvalidSize)
	}

	// 2. Per-order notional cap.
	if limits.MaxOrderNotionalUsd > 0 && notional > limits.MaxOrderNotionalUsd {
		return deny(ReasonMaxOrderNotional)
	}

	// 3. Equity-relative symbol exposure cap, on the post-fill position.
	equity := agent.EquityUsd(prices)
	if limits.MaxPositionSizePct > 0 {
		held := 0.0
		if pos, ok := agent.Positions[intent.Symbol]; ok {
			held = pos.Quantity
		}
		postQty := held + quantity
		if intent.Side == domain.SideSell {
			postQty = held - quantity
		}
		exposure := postQty * priceUsd
		if exposure < 0 {
			exposure = -exposure
		}
		if exposure > limits.MaxPositionSizePct*equity {
			return deny(ReasonMaxPositionSize)
		}
	}

	// 4. Gross exposure cap across all positions, post-fill.
	if limits.MaxGrossExposureUsd > 0 {
		gross := agent.GrossExposureUsd(prices)
		if intent.Side == domain.SideBuy {
			gross += notional
		} else {
			gross -= notional
			if gross < 0 {
				gross = 0
			}
		}
		if gross > limits.MaxGrossExposureUsd {
			return deny(ReasonMaxGrossExposure)
		}
	}

	riskIncreasing := intent.Side == domain.SideBuy

	// 5. Daily loss cap, risk-increasing intents only.
	if limits.DailyLossCapUsd > 0 && riskIncreasing {
		todayPnl := agent.DailyRealizedPnlUsd[domain.DayKey(now.UnixMilli())]
		if todayPnl <= -limits.DailyLossCapUsd {
			return deny(ReasonDailyLossCap)
		}
	}

	// 6. Max drawdown from peak equity, risk-increasing intents only.
	if limits.MaxDrawdownPct > 0 && riskIncreasing && agent.PeakEquityUsd > 0 {
		drawdown := (agent.PeakEquityUsd - equity) / agent.PeakEquityUsd
		if drawdown >= limits.MaxDrawdownPct {
			return deny(ReasonMaxDrawdown)
		}
	}

	// 7. Cooldown since the last successful fill.
	if limits.CooldownSeconds > 0 && agent.LastTradeAt > 0 {
		elapsed := now.UnixMilli() - agent.LastTradeAt
		if elapsed < limits.CooldownSeconds*1000 {
			return deny(ReasonCooldownActive)
		}
	}

	// 8. Sells must not exceed held inventory.
	if intent.Side == domain.SideSell {
		pos, ok := agent.Positions[intent.Symbol]
		if !ok || pos.Quantity < quantity {
			return deny(ReasonInsufficientInventory)
		}
	}

	return Decision{Approved: true, Quantity: quantity, NotionalUsd: notional}
}
