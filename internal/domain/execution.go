package domain

// ExecutionStatus is the outcome of an execution attempt.
type ExecutionStatus string

// ExecutionStatus values.
const (
	ExecutionStatusFilled ExecutionStatus = "filled"
	ExecutionStatusFailed ExecutionStatus = "failed"
)

// ExecutionRecord is the immutable outcome of attempting to fill an admitted
// intent. One per processed intent, including failed attempts; rejected
// intents never produce a record.
type ExecutionRecord struct {
	ID               string          `json:"id"`
	IntentID         string          `json:"intent_id"`
	AgentID          string          `json:"agent_id"`
	Symbol           string          `json:"symbol"`
	Side             Side            `json:"side"`
	Quantity         float64         `json:"quantity"`
	PriceUsd         float64         `json:"price_usd"`
	GrossNotionalUsd float64         `json:"gross_notional_usd"`
	FeeUsd           float64         `json:"fee_usd"`
	Mode             Mode            `json:"mode"`
	Status           ExecutionStatus `json:"status"`
	NetUsd           float64         `json:"net_usd"`
	RealizedPnlUsd   float64         `json:"realized_pnl_usd"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	TxSignature      string          `json:"tx_signature,omitempty"`
	CreatedAt        int64           `json:"created_at"` // ms
}

// Clone returns a copy of the record.
func (e *ExecutionRecord) Clone() *ExecutionRecord {
	cp := *e
	return &cp
}
