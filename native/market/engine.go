package market

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
	"time"

	"promptledger/core/events"
	"promptledger/core/types"
	nativecommon "promptledger/native/common"
)

var (
	// ErrNilState is returned when the engine has no state backend configured.
	ErrNilState = errors.New("marketplace: state not configured")
	// ErrInvalidPromptID is returned when the prompt id is the zero sentinel.
	ErrInvalidPromptID = errors.New("marketplace: invalid prompt ID")
	// ErrInvalidPrice is returned for nil or zero listing prices.
	ErrInvalidPrice = errors.New("marketplace: invalid price")
	// ErrInvalidDuration is returned for non-positive access durations.
	ErrInvalidDuration = errors.New("marketplace: invalid duration")
	// ErrListingNotFound is returned when the listing id does not exist.
	ErrListingNotFound = errors.New("marketplace: listing not found")
	// ErrNotSeller is returned when anyone but the seller cancels a listing.
	ErrNotSeller = errors.New("marketplace: not the seller")
	// ErrListingInactive is returned when the listing is no longer active.
	ErrListingInactive = errors.New("marketplace: listing not active")
	// ErrInsufficientPayment is returned when the payment is below the price.
	ErrInsufficientPayment = errors.New("marketplace: insufficient payment")
	// ErrFeeTooHigh is returned when the platform fee exceeds the ceiling.
	ErrFeeTooHigh = errors.New("marketplace: fee too high")
	// ErrNotAdmin is returned when a non-admin invokes an admin-only operation.
	ErrNotAdmin = errors.New("marketplace: caller is not the admin")
	// ErrPlatformNotSet is returned when no platform account is configured.
	ErrPlatformNotSet = errors.New("marketplace: platform address not configured")
)

const (
	moduleName = "market"

	// DefaultFeeBps is the platform cut applied until the admin changes it.
	DefaultFeeBps uint64 = 250
	// MaxFeeBps caps the configurable platform cut at 10%.
	MaxFeeBps uint64 = 1000
)

type engineState interface {
	ListingGet(id uint64) (*Listing, bool, error)
	ListingPut(listing *Listing) error
	ListingCount() (uint64, error)
	ListingCountPut(count uint64) error
	AccessGrantGet(buyer [20]byte, promptID uint64) (*AccessGrant, bool, error)
	AccessGrantPut(grant *AccessGrant) error
	MarketFeeGet() (uint64, bool, error)
	MarketFeePut(bps uint64) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Engine runs the listing/purchase/access-grant flow. Purchases debit the
// buyer by exactly the listing price (any declared surplus stays with the
// buyer) and split the price between seller and platform.
type Engine struct {
	state    engineState
	emitter  events.Emitter
	nowFn    func() int64
	admin    [20]byte
	platform [20]byte
	pauses   nativecommon.PauseView
}

// NewEngine constructs a marketplace engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn: func() int64 {
			return time.Now().Unix()
		},
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetAdmin configures the admin identity for fee updates.
func (e *Engine) SetAdmin(admin [20]byte) { e.admin = admin }

// SetPlatformAddress configures the account credited with the platform cut.
func (e *Engine) SetPlatformAddress(addr [20]byte) { e.platform = addr }

// SetPauses configures the pause switchboard consulted before mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

// CreateListing stores a new active listing and assigns the next sequential id.
func (e *Engine) CreateListing(seller [20]byte, promptID uint64, price *big.Int, duration int64) (*Listing, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if promptID == 0 {
		return nil, ErrInvalidPromptID
	}
	if price == nil || price.Sign() <= 0 {
		return nil, ErrInvalidPrice
	}
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	count, err := e.state.ListingCount()
	if err != nil {
		return nil, err
	}
	listing := &Listing{
		ID:        count + 1,
		PromptID:  promptID,
		Seller:    seller,
		Price:     new(big.Int).Set(price),
		Duration:  duration,
		Active:    true,
		CreatedAt: e.now(),
	}
	if err := e.state.ListingPut(listing); err != nil {
		return nil, err
	}
	if err := e.state.ListingCountPut(listing.ID); err != nil {
		return nil, err
	}
	e.emit(ListingCreatedEvent(
		strconv.FormatUint(listing.ID, 10),
		strconv.FormatUint(promptID, 10),
		hexAddr(seller),
		listing.Price.String(),
		strconv.FormatInt(duration, 10),
	))
	return listing.Clone(), nil
}

// CancelListing deactivates a listing. Only the seller may cancel, and only
// while the listing is still active.
func (e *Engine) CancelListing(caller [20]byte, listingID uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	listing, ok, err := e.state.ListingGet(listingID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrListingNotFound
	}
	if caller != listing.Seller {
		return ErrNotSeller
	}
	if !listing.Active {
		return ErrListingInactive
	}
	listing.Active = false
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(ListingCancelledEvent(strconv.FormatUint(listingID, 10)))
	return nil
}

// PurchaseAccess debits the buyer by the listing price, credits the seller
// net of the platform cut, credits the platform account, and grants timed
// access to the underlying prompt. The declared payment only establishes the
// buyer's offer: value above the price never leaves the buyer's account.
func (e *Engine) PurchaseAccess(buyer [20]byte, listingID uint64, payment *big.Int) (*AccessGrant, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	listing, ok, err := e.state.ListingGet(listingID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrListingNotFound
	}
	if !listing.Active {
		return nil, ErrListingInactive
	}
	if payment == nil || payment.Cmp(listing.Price) < 0 {
		return nil, ErrInsufficientPayment
	}
	if isZeroAddress(e.platform) {
		return nil, ErrPlatformNotSet
	}
	feeBps, err := e.fee()
	if err != nil {
		return nil, err
	}
	platformCut := new(big.Int).Mul(listing.Price, new(big.Int).SetUint64(feeBps))
	platformCut = platformCut.Div(platformCut, big.NewInt(10_000))
	sellerAmount := new(big.Int).Sub(listing.Price, platformCut)

	if err := nativecommon.Debit(e.state, buyer, listing.Price); err != nil {
		return nil, err
	}
	if sellerAmount.Sign() > 0 {
		if err := nativecommon.Credit(e.state, listing.Seller, sellerAmount); err != nil {
			return nil, err
		}
	}
	if platformCut.Sign() > 0 {
		if err := nativecommon.Credit(e.state, e.platform, platformCut); err != nil {
			return nil, err
		}
	}
	now := e.now()
	grant := &AccessGrant{
		Buyer:       buyer,
		PromptID:    listing.PromptID,
		ListingID:   listingID,
		PurchasedAt: now,
		ExpiresAt:   now + listing.Duration,
	}
	if err := e.state.AccessGrantPut(grant); err != nil {
		return nil, err
	}
	e.emit(PurchaseMadeEvent(
		strconv.FormatUint(listingID, 10),
		hexAddr(buyer),
		listing.Price.String(),
	))
	return grant.Clone(), nil
}

// HasActiveAccess reports whether the identity holds an unexpired grant for
// the prompt. Expiry is evaluated against the current time; nothing is
// evicted in the background.
func (e *Engine) HasActiveAccess(identity [20]byte, promptID uint64) (bool, error) {
	if e == nil || e.state == nil {
		return false, ErrNilState
	}
	grant, ok, err := e.state.AccessGrantGet(identity, promptID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return e.now() < grant.ExpiresAt, nil
}

// UpdateFee replaces the platform cut. Admin only, capped at MaxFeeBps.
func (e *Engine) UpdateFee(caller [20]byte, bps uint64) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrNotAdmin
	}
	if bps > MaxFeeBps {
		return ErrFeeTooHigh
	}
	return e.state.MarketFeePut(bps)
}

// Listing returns the stored listing for the id without mutating state.
func (e *Engine) Listing(id uint64) (*Listing, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, ErrNilState
	}
	listing, ok, err := e.state.ListingGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	return listing.Clone(), true, nil
}

// Access returns the stored grant for (buyer, promptID), expired or not.
func (e *Engine) Access(buyer [20]byte, promptID uint64) (*AccessGrant, bool, error) {
	if e == nil || e.state == nil {
		return nil, false, ErrNilState
	}
	grant, ok, err := e.state.AccessGrantGet(buyer, promptID)
	if err != nil || !ok {
		return nil, false, err
	}
	return grant.Clone(), true, nil
}

// TotalListings returns the number of listings ever created.
func (e *Engine) TotalListings() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.state.ListingCount()
}

// CurrentFee returns the active platform fee in basis points.
func (e *Engine) CurrentFee() (uint64, error) {
	if e == nil || e.state == nil {
		return 0, ErrNilState
	}
	return e.fee()
}

func (e *Engine) fee() (uint64, error) {
	bps, ok, err := e.state.MarketFeeGet()
	if err != nil {
		return 0, err
	}
	if !ok {
		return DefaultFeeBps, nil
	}
	return bps, nil
}
