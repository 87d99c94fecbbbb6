// Package domain defines the financial data model: agents, trade intents,
// execution records, the treasury, and the aggregate document the state
// store persists. All timestamps are Unix milliseconds UTC.
package domain

import "time"

// Metrics is the persisted process-counter block.
type Metrics struct {
	IntentsReceived    int64 `json:"intents_received"`
	IntentsExecuted    int64 `json:"intents_executed"`
	IntentsRejected    int64 `json:"intents_rejected"`
	IntentsFailed      int64 `json:"intents_failed"`
	IdempotencyReplays int64 `json:"idempotency_replays"`
}

// AppState is the single persisted document holding all mutable financial
// truth. It is owned exclusively by the state store; everything outside the
// store only ever sees deep copies. The schema is additive-only: loaders
// must tolerate missing optional fields.
type AppState struct {
	SchemaVersion int `json:"schema_version"`

	Agents      map[string]*Agent             `json:"agents"`      // by agent id
	Intents     map[string]*TradeIntent       `json:"intents"`     // by intent id
	Executions  map[string]*ExecutionRecord   `json:"executions"`  // by execution id
	Idempotency map[string]*IdempotencyRecord `json:"idempotency"` // by IdempotencyLookupKey

	MarketPricesUsd map[string]float64 `json:"market_prices_usd"` // current mark by symbol

	Treasury *Treasury `json:"treasury"`
	Metrics  Metrics   `json:"metrics"`

	SavedAt int64 `json:"saved_at,omitempty"` // ms, set by the store on persist
}

// CurrentSchemaVersion is written into every persisted document.
const CurrentSchemaVersion = 1

// NewAppState returns an empty state document.
func NewAppState() *AppState {
	return &AppState{
		SchemaVersion:   CurrentSchemaVersion,
		Agents:          make(map[string]*Agent),
		Intents:         make(map[string]*TradeIntent),
		Executions:      make(map[string]*ExecutionRecord),
		Idempotency:     make(map[string]*IdempotencyRecord),
		MarketPricesUsd: make(map[string]float64),
		Treasury:        &Treasury{},
	}
}

// Normalize fills in maps a loaded document may be missing (additive schema).
func (s *AppState) Normalize() {
	if s.Agents == nil {
		s.Agents = make(map[string]*Agent)
	}
	if s.Intents == nil {
		s.Intents = make(map[string]*TradeIntent)
	}
	if s.Executions == nil {
		s.Executions = make(map[string]*ExecutionRecord)
	}
	if s.Idempotency == nil {
		s.Idempotency = make(map[string]*IdempotencyRecord)
	}
	if s.MarketPricesUsd == nil {
		s.MarketPricesUsd = make(map[string]float64)
	}
	if s.Treasury == nil {
		s.Treasury = &Treasury{}
	}
	if s.SchemaVersion == 0 {
		s.SchemaVersion = CurrentSchemaVersion
	}
}

// Clone returns an independent deep copy of the whole document.
func (s *AppState) Clone() *AppState {
	cp := &AppState{
		SchemaVersion:   s.SchemaVersion,
		Agents:          make(map[string]*Agent, len(s.Agents)),
		Intents:         make(map[string]*TradeIntent, len(s.Intents)),
		Executions:      make(map[string]*ExecutionRecord, len(s.Executions)),
		Idempotency:     make(map[string]*IdempotencyRecord, len(s.Idempotency)),
		MarketPricesUsd: make(map[string]float64, len(s.MarketPricesUsd)),
		Metrics:         s.Metrics,
		SavedAt:         s.SavedAt,
	}
	for id, a := range s.Agents {
		cp.Agents[id] = a.Clone()
	}
	for id, i := range s.Intents {
		cp.Intents[id] = i.Clone()
	}
	for id, e := range s.Executions {
		cp.Executions[id] = e.Clone()
	}
	for k, r := range s.Idempotency {
		cp.Idempotency[k] = r.Clone()
	}
	for sym, p := range s.MarketPricesUsd {
		cp.MarketPricesUsd[sym] = p
	}
	if s.Treasury != nil {
		cp.Treasury = s.Treasury.Clone()
	} else {
		cp.Treasury = &Treasury{}
	}
	return cp
}

// IdempotencyLookupKey builds the map key scoping idempotency keys per agent.
func IdempotencyLookupKey(agentID, key string) string {
	return agentID + "|" + key
}

// DayKey converts a millisecond timestamp to the UTC day bucket key
// used for daily realized PnL.
func DayKey(tsMs int64) string {
	return time.UnixMilli(tsMs).UTC().Format("2006-01-02")
}
