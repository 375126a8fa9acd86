package usage

import "math/big"

// Record is one metered invocation of a prompt. Records are append-only and
// keyed by their arena position; a per-prompt index preserves insertion order
// for paginated reads.
type Record struct {
	PromptID  uint64   `json:"promptId"`
	Caller    [20]byte `json:"caller"`
	Fee       *big.Int `json:"fee"`
	Timestamp int64    `json:"timestamp"`
	SessionID string   `json:"sessionId"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Fee != nil {
		clone.Fee = new(big.Int).Set(r.Fee)
	}
	return &clone
}
