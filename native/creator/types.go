package creator

import "math/big"

// Profile captures the on-ledger identity, aggregate stats and reputation of
// a registered creator. The username is immutable after registration; the
// profile URI points at an off-chain metadata document and may be replaced.
type Profile struct {
	Address         [20]byte `json:"address"`
	Username        string   `json:"username"`
	ProfileURI      string   `json:"profileUri"`
	TotalPrompts    uint64   `json:"totalPrompts"`
	TotalUsage      uint64   `json:"totalUsage"`
	TotalEarnings   *big.Int `json:"totalEarnings"`
	ReputationScore uint64   `json:"reputationScore"`
	JoinedAt        int64    `json:"joinedAt"`
	Verified        bool     `json:"verified"`
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TotalEarnings != nil {
		clone.TotalEarnings = new(big.Int).Set(p.TotalEarnings)
	}
	return &clone
}
