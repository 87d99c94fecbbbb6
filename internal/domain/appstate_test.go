package domain

import "testing"

func TestAppStateClone_Independent(t *testing.T) {
	state := NewAppState()
	state.Agents["a1"] = &Agent{
		ID:      "a1",
		CashUsd: 1000,
		Positions: map[string]*Position{
			"SOL": {Symbol: "SOL", Quantity: 5, AvgEntryPriceUsd: 90},
		},
		DailyRealizedPnlUsd: map[string]float64{"2026-01-02": -50},
	}
	state.Intents["i1"] = &TradeIntent{ID: "i1", Status: IntentStatusPending, Meta: map[string]string{"k": "v"}}
	state.MarketPricesUsd["SOL"] = 100
	state.Treasury.Entries = append(state.Treasury.Entries, &FeeEntry{AmountUsd: 1})

	clone := state.Clone()

	clone.Agents["a1"].CashUsd = 0
	clone.Agents["a1"].Positions["SOL"].Quantity = 99
	clone.Agents["a1"].DailyRealizedPnlUsd["2026-01-02"] = 7
	clone.Intents["i1"].Status = IntentStatusExecuted
	clone.Intents["i1"].Meta["k"] = "changed"
	clone.MarketPricesUsd["SOL"] = 1
	clone.Treasury.Entries[0].AmountUsd = 9

	if state.Agents["a1"].CashUsd != 1000 {
		t.Errorf("agent cash mutated through clone: %v", state.Agents["a1"].CashUsd)
	}
	if state.Agents["a1"].Positions["SOL"].Quantity != 5 {
		t.Errorf("position mutated through clone")
	}
	if state.Agents["a1"].DailyRealizedPnlUsd["2026-01-02"] != -50 {
		t.Errorf("daily pnl mutated through clone")
	}
	if state.Intents["i1"].Status != IntentStatusPending {
		t.Errorf("intent status mutated through clone")
	}
	if state.Intents["i1"].Meta["k"] != "v" {
		t.Errorf("intent meta mutated through clone")
	}
	if state.MarketPricesUsd["SOL"] != 100 {
		t.Errorf("market price mutated through clone")
	}
	if state.Treasury.Entries[0].AmountUsd != 1 {
		t.Errorf("treasury mutated through clone")
	}
}

func TestNormalize_FillsMissingMaps(t *testing.T) {
	var state AppState
	state.Normalize()

	if state.Agents == nil || state.Intents == nil || state.Executions == nil ||
		state.Idempotency == nil || state.MarketPricesUsd == nil || state.Treasury == nil {
		t.Fatalf("Normalize left nil collections: %+v", state)
	}
	if state.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", state.SchemaVersion, CurrentSchemaVersion)
	}
}

func TestDayKey(t *testing.T) {
	// 2026-08-31T12:30:00Z
	if got := DayKey(1788179400000); got != "2026-08-31" {
		t.Errorf("DayKey() = %s, want 2026-08-31", got)
	}
}

func TestIntentStatusTerminal(t *testing.T) {
	terminal := []IntentStatus{IntentStatusExecuted, IntentStatusFailed, IntentStatusRejected}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []IntentStatus{IntentStatusPending, IntentStatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
