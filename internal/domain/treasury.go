package domain

// Fee entry sources.
const (
	FeeSourceExecution = "execution_fee"
)

// FeeEntry is one append-only treasury ledger line.
type FeeEntry struct {
	Source    string  `json:"source"`
	AmountUsd float64 `json:"amount_usd"`
	RefID     string  `json:"ref_id,omitempty"` // execution id for execution fees
	Notes     string  `json:"notes,omitempty"`
	CreatedAt int64   `json:"created_at"` // ms
}

// Treasury accumulates platform fees.
type Treasury struct {
	TotalFeesUsd float64     `json:"total_fees_usd"`
	Entries      []*FeeEntry `json:"entries,omitempty"`
}

// Clone returns a deep copy of the treasury.
func (t *Treasury) Clone() *Treasury {
	cp := &Treasury{TotalFeesUsd: t.TotalFeesUsd}
	if t.Entries != nil {
		cp.Entries = make([]*FeeEntry, len(t.Entries))
		for i, e := range t.Entries {
			entry := *e
			cp.Entries[i] = &entry
		}
	}
	return cp
}
