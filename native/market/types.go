package market

import "math/big"

// Listing offers timed access to a prompt at a fixed price. Listings stay
// active after a purchase; cancellation is reserved for the seller.
type Listing struct {
	ID        uint64   `json:"id"`
	PromptID  uint64   `json:"promptId"`
	Seller    [20]byte `json:"seller"`
	Price     *big.Int `json:"price"`
	Duration  int64    `json:"duration"`
	Active    bool     `json:"active"`
	CreatedAt int64    `json:"createdAt"`
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.Price != nil {
		clone.Price = new(big.Int).Set(l.Price)
	}
	return &clone
}

// AccessGrant records purchased access to a prompt. A repeat purchase
// overwrites the grant with a fresh expiry; expiry is evaluated lazily at
// query time.
type AccessGrant struct {
	Buyer       [20]byte `json:"buyer"`
	PromptID    uint64   `json:"promptId"`
	ListingID   uint64   `json:"listingId"`
	PurchasedAt int64    `json:"purchasedAt"`
	ExpiresAt   int64    `json:"expiresAt"`
}

// Clone returns a copy of the grant.
func (g *AccessGrant) Clone() *AccessGrant {
	if g == nil {
		return nil
	}
	clone := *g
	return &clone
}
