package revenue

import "math/big"

// Shares is the three-way split configuration in basis points. A valid
// configuration sums to exactly 10000.
type Shares struct {
	CreatorBps  uint32 `json:"creatorBps"`
	PlatformBps uint32 `json:"platformBps"`
	TreasuryBps uint32 `json:"treasuryBps"`
}

// DefaultShares returns the 70/20/10 split applied until the admin changes it.
func DefaultShares() Shares {
	return Shares{CreatorBps: 7000, PlatformBps: 2000, TreasuryBps: 1000}
}

// Valid reports whether the shares sum to exactly 10000 basis points.
func (s Shares) Valid() bool {
	return uint64(s.CreatorBps)+uint64(s.PlatformBps)+uint64(s.TreasuryBps) == 10_000
}

// Distribution is the outcome of splitting one unit of revenue. The treasury
// amount absorbs the rounding remainder so the three parts always sum to the
// total exactly.
type Distribution struct {
	Creator        [20]byte `json:"creator"`
	CreatorAmount  *big.Int `json:"creatorAmount"`
	PlatformAmount *big.Int `json:"platformAmount"`
	TreasuryAmount *big.Int `json:"treasuryAmount"`
	Total          *big.Int `json:"total"`
}

// Split divides amount per the configured shares. The creator and platform
// parts round down; the treasury takes the remainder.
func Split(amount *big.Int, shares Shares) Distribution {
	total := new(big.Int).Set(amount)
	creatorAmt := new(big.Int).Mul(total, big.NewInt(int64(shares.CreatorBps)))
	creatorAmt = creatorAmt.Div(creatorAmt, big.NewInt(10_000))
	platformAmt := new(big.Int).Mul(total, big.NewInt(int64(shares.PlatformBps)))
	platformAmt = platformAmt.Div(platformAmt, big.NewInt(10_000))
	treasuryAmt := new(big.Int).Sub(total, creatorAmt)
	treasuryAmt = treasuryAmt.Sub(treasuryAmt, platformAmt)
	return Distribution{
		CreatorAmount:  creatorAmt,
		PlatformAmount: platformAmt,
		TreasuryAmount: treasuryAmt,
		Total:          total,
	}
}
