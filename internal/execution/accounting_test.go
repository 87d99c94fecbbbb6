package execution

import (
	"errors"
	"testing"

	"solana-agent-arena/internal/domain"
)

const nowMs = int64(1788179400000) // 2026-08-31 UTC

func fundedAgent() *domain.Agent {
	return &domain.Agent{
		ID:                 "a1",
		StartingCapitalUsd: 10_000,
		CashUsd:            10_000,
		PeakEquityUsd:      10_000,
		Positions:          map[string]*domain.Position{},
	}
}

func TestApplyFill_BuyDeductsCashAndOpensPosition(t *testing.T) {
	agent := fundedAgent()

	outcome, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.SideBuy, quantity: 20, priceUsd: 100, feeUsd: 5,
	}, nowMs, map[string]float64{"SOL": 100})
	if err != nil {
		t.Fatalf("applyFill: %v", err)
	}

	if agent.CashUsd != 7_995 {
		t.Errorf("cash = %v, want 7995", agent.CashUsd)
	}
	pos := agent.Positions["SOL"]
	if pos == nil || pos.Quantity != 20 || pos.AvgEntryPriceUsd != 100 {
		t.Errorf("position = %+v, want 20 @ 100", pos)
	}
	if outcome.NetUsd != -2_005 {
		t.Errorf("net = %v, want -2005", outcome.NetUsd)
	}
	if agent.LastTradeAt != nowMs {
		t.Errorf("last trade at = %v, want %v", agent.LastTradeAt, nowMs)
	}
}

func TestApplyFill_BuyAveragesCostBasis(t *testing.T) {
	agent := fundedAgent()
	agent.Positions["SOL"] = &domain.Position{Symbol: "SOL", Quantity: 10, AvgEntryPriceUsd: 90}

	_, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.SideBuy, quantity: 10, priceUsd: 110,
	}, nowMs, nil)
	if err != nil {
		t.Fatalf("applyFill: %v", err)
	}

	pos := agent.Positions["SOL"]
	if pos.Quantity != 20 {
		t.Errorf("quantity = %v, want 20", pos.Quantity)
	}
	// (10*90 + 10*110) / 20 = 100
	if pos.AvgEntryPriceUsd != 100 {
		t.Errorf("avg entry = %v, want 100", pos.AvgEntryPriceUsd)
	}
}

func TestApplyFill_BuyRejectsInsufficientCash(t *testing.T) {
	agent := fundedAgent()
	agent.CashUsd = 2_000
	before := agent.Clone()

	// Gross 2000 plus fee exceeds cash by the fee.
	_, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.SideBuy, quantity: 20, priceUsd: 100, feeUsd: 5,
	}, nowMs, nil)

	var accErr *AccountingError
	if !errors.As(err, &accErr) || accErr.Reason != ReasonInsufficientCash {
		t.Fatalf("err = %v, want %s", err, ReasonInsufficientCash)
	}
	if agent.CashUsd != before.CashUsd || len(agent.Positions) != 0 || agent.LastTradeAt != 0 {
		t.Fatal("failed fill must leave the agent untouched")
	}
}

func TestApplyFill_SellRealizesPnlAndBucketsByDay(t *testing.T) {
	agent := fundedAgent()
	agent.CashUsd = 8_000
	agent.Positions["SOL"] = &domain.Position{Symbol: "SOL", Quantity: 20, AvgEntryPriceUsd: 100}

	outcome, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.SideSell, quantity: 10, priceUsd: 110, feeUsd: 2.75,
	}, nowMs, map[string]float64{"SOL": 110})
	if err != nil {
		t.Fatalf("applyFill: %v", err)
	}

	// Proceeds 1100 - 2.75 fee.
	if agent.CashUsd != 9_097.25 {
		t.Errorf("cash = %v, want 9097.25", agent.CashUsd)
	}
	// (110 - 100) * 10, gross of fee.
	if outcome.RealizedPnlUsd != 100 {
		t.Errorf("realized = %v, want 100", outcome.RealizedPnlUsd)
	}
	if agent.RealizedPnlUsd != 100 {
		t.Errorf("agent realized = %v, want 100", agent.RealizedPnlUsd)
	}
	if got := agent.DailyRealizedPnlUsd["2026-08-31"]; got != 100 {
		t.Errorf("daily bucket = %v, want 100", got)
	}
	if agent.Positions["SOL"].Quantity != 10 {
		t.Errorf("remaining quantity = %v, want 10", agent.Positions["SOL"].Quantity)
	}
}

func TestApplyFill_FullSellRemovesPosition(t *testing.T) {
	agent := fundedAgent()
	agent.Positions["SOL"] = &domain.Position{Symbol: "SOL", Quantity: 5, AvgEntryPriceUsd: 100}

	_, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.SideSell, quantity: 5, priceUsd: 100,
	}, nowMs, nil)
	if err != nil {
		t.Fatalf("applyFill: %v", err)
	}
	if _, ok := agent.Positions["SOL"]; ok {
		t.Fatal("fully sold position must be removed")
	}
}

func TestApplyFill_SellRejectsInsufficientInventory(t *testing.T) {
	agent := fundedAgent()
	agent.Positions["SOL"] = &domain.Position{Symbol: "SOL", Quantity: 5, AvgEntryPriceUsd: 100}
	before := agent.Clone()

	_, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.SideSell, quantity: 6, priceUsd: 100,
	}, nowMs, nil)

	var accErr *AccountingError
	if !errors.As(err, &accErr) || accErr.Reason != ReasonInsufficientInventory {
		t.Fatalf("err = %v, want %s", err, ReasonInsufficientInventory)
	}
	if agent.CashUsd != before.CashUsd || agent.Positions["SOL"].Quantity != 5 {
		t.Fatal("failed fill must leave the agent untouched")
	}
}

func TestApplyFill_RaisesPeakEquity(t *testing.T) {
	agent := fundedAgent()
	agent.CashUsd = 9_000
	agent.Positions["SOL"] = &domain.Position{Symbol: "SOL", Quantity: 10, AvgEntryPriceUsd: 100}

	// Mark at 150: post-sell equity 9000 + 750 (proceeds at 150 for 5)
	// + 5*150 held = 10500, above the 10000 peak.
	_, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.SideSell, quantity: 5, priceUsd: 150,
	}, nowMs, map[string]float64{"SOL": 150})
	if err != nil {
		t.Fatalf("applyFill: %v", err)
	}
	if agent.PeakEquityUsd != 10_500 {
		t.Errorf("peak equity = %v, want 10500", agent.PeakEquityUsd)
	}
}

func TestApplyFill_PeakEquityNeverFalls(t *testing.T) {
	agent := fundedAgent()
	agent.CashUsd = 5_000
	agent.PeakEquityUsd = 10_000

	_, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.SideBuy, quantity: 10, priceUsd: 100,
	}, nowMs, map[string]float64{"SOL": 100})
	if err != nil {
		t.Fatalf("applyFill: %v", err)
	}
	if agent.PeakEquityUsd != 10_000 {
		t.Errorf("peak equity = %v, must not fall below 10000", agent.PeakEquityUsd)
	}
}

func TestApplyFill_UnknownSideErrorsWithoutBooking(t *testing.T) {
	agent := fundedAgent()
	before := agent.Clone()

	_, err := applyFill(agent, fill{
		symbol: "SOL", side: domain.Side("hold"), quantity: 10, priceUsd: 100,
	}, nowMs, nil)
	if err == nil {
		t.Fatal("want error for unknown side")
	}
	if agent.CashUsd != before.CashUsd || len(agent.Positions) != 0 || agent.LastTradeAt != 0 {
		t.Fatal("unknown side must leave the agent untouched")
	}
}
