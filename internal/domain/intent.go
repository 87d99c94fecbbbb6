package domain

// Side is the direction of a trade intent.
type Side string

// Side values.
const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether the side is a known value.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Mode selects the execution path for an admitted intent.
type Mode string

// Mode values.
const (
	ModePaper Mode = "paper" // simulated fill, accounting only
	ModeLive  Mode = "live"  // routed through the external swap venue
)

// Valid reports whether the mode is a known value.
func (m Mode) Valid() bool {
	return m == ModePaper || m == ModeLive
}

// IntentStatus is the lifecycle state of a trade intent.
// Transitions are one-way: pending → processing → {executed, failed, rejected}.
type IntentStatus string

// IntentStatus values.
const (
	IntentStatusPending    IntentStatus = "pending"
	IntentStatusProcessing IntentStatus = "processing"
	IntentStatusExecuted   IntentStatus = "executed"
	IntentStatusFailed     IntentStatus = "failed"
	IntentStatusRejected   IntentStatus = "rejected"
)

// Terminal reports whether the status is final.
func (s IntentStatus) Terminal() bool {
	switch s {
	case IntentStatusExecuted, IntentStatusFailed, IntentStatusRejected:
		return true
	default:
		return false
	}
}

// TradeIntent is a client's buy/sell request prior to admission or execution.
// Created by the intent service, mutated only by the execution service,
// retained forever as an audit trail.
type TradeIntent struct {
	ID      string `json:"id"`
	AgentID string `json:"agent_id"`
	Symbol  string `json:"symbol"`
	Side    Side   `json:"side"`

	// Sizing: at least one of Quantity and NotionalUsd is set.
	// NotionalUsd is authoritative when both are given.
	Quantity    float64 `json:"quantity,omitempty"`
	NotionalUsd float64 `json:"notional_usd,omitempty"`

	RequestedMode Mode `json:"requested_mode,omitempty"` // empty = platform default

	Status       IntentStatus `json:"status"`
	StatusReason string       `json:"status_reason,omitempty"`
	ExecutionID  string       `json:"execution_id,omitempty"`

	IdempotencyKey string            `json:"idempotency_key,omitempty"`
	RequestHash    string            `json:"request_hash,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`

	CreatedAt int64 `json:"created_at"` // ms
	UpdatedAt int64 `json:"updated_at"` // ms
}

// Clone returns a deep copy of the intent.
func (i *TradeIntent) Clone() *TradeIntent {
	cp := *i
	if i.Meta != nil {
		cp.Meta = make(map[string]string, len(i.Meta))
		for k, v := range i.Meta {
			cp.Meta[k] = v
		}
	}
	return &cp
}

// IdempotencyRecord maps a client-supplied key to the intent it created.
// Written once per (agent, key); never mutated.
type IdempotencyRecord struct {
	AgentID     string `json:"agent_id"`
	Key         string `json:"key"`
	RequestHash string `json:"request_hash"`
	IntentID    string `json:"intent_id"`
	CreatedAt   int64  `json:"created_at"` // ms
}

// Clone returns a copy of the record.
func (r *IdempotencyRecord) Clone() *IdempotencyRecord {
	cp := *r
	return &cp
}
