package core

import (
	"errors"
	"log/slog"
	"math/big"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"promptledger/core/events"
	"promptledger/core/state"
	"promptledger/core/types"
	"promptledger/native/authz"
	"promptledger/native/common"
	"promptledger/native/creator"
	"promptledger/native/market"
	"promptledger/native/prompt"
	"promptledger/native/revenue"
	"promptledger/native/usage"
	"promptledger/storage"
)

// ModuleAddress derives the deterministic ledger identity for a native
// module. Module identities own no keys; they exist so engines can invoke
// allowlist-gated operations on each other.
func ModuleAddress(name string) [20]byte {
	digest := ethcrypto.Keccak256([]byte("promptledger/module/" + name))
	var addr [20]byte
	copy(addr[:], digest[12:])
	return addr
}

// NodeConfig carries the operator identities and pause switches a node is
// started with.
type NodeConfig struct {
	Admin         [20]byte
	Platform      [20]byte
	Treasury      [20]byte
	PausedModules []string
}

// Node owns the canonical ledger state and serialises every mutation. Each
// mutating call stages its events in a buffer that is merged into the
// canonical log only when the call succeeds, so a failed operation leaves no
// trace in either state or the event stream.
type Node struct {
	mu     sync.Mutex
	db     storage.Database
	state  *state.Manager
	logger *slog.Logger

	authz   *authz.Engine
	creator *creator.Engine
	prompt  *prompt.Engine
	usage   *usage.Engine
	revenue *revenue.Engine
	market  *market.Engine

	admin    [20]byte
	platform [20]byte
	treasury [20]byte

	eventLog []types.Event
}

// NewNode wires the native engines over the database and runs genesis
// bootstrap: the authorization resources are created with the configured
// admin, and the prompt and revenue module identities are enrolled as creator
// updaters so their stats pushes pass the allowlist.
func NewNode(db storage.Database, cfg NodeConfig) (*Node, error) {
	manager := state.NewManager(db)
	pauses := common.NewPauses(cfg.PausedModules)

	promptModule := ModuleAddress("prompt")
	revenueModule := ModuleAddress("revenue")
	vault := ModuleAddress("revenue/vault")

	n := &Node{
		db:       db,
		state:    manager,
		logger:   slog.Default(),
		authz:    authz.NewEngine(),
		creator:  creator.NewEngine(),
		prompt:   prompt.NewEngine(),
		usage:    usage.NewEngine(),
		revenue:  revenue.NewEngine(),
		market:   market.NewEngine(),
		admin:    cfg.Admin,
		platform: cfg.Platform,
		treasury: cfg.Treasury,
	}

	n.authz.SetState(manager)

	n.creator.SetState(manager)
	n.creator.SetAuthorizer(n.authz)
	n.creator.SetAdmin(cfg.Admin)
	n.creator.SetPauses(pauses)

	n.prompt.SetState(manager)
	n.prompt.SetCreatorStats(n.creator)
	n.prompt.SetModuleAddress(promptModule)
	n.prompt.SetPauses(pauses)

	n.usage.SetState(manager)
	n.usage.SetAuthorizer(n.authz)
	n.usage.SetPauses(pauses)

	n.revenue.SetState(manager)
	n.revenue.SetCreatorStats(n.creator)
	n.revenue.SetAdmin(cfg.Admin)
	n.revenue.SetVault(vault)
	n.revenue.SetPlatformAddress(cfg.Platform)
	n.revenue.SetTreasuryAddress(cfg.Treasury)
	n.revenue.SetModuleAddress(revenueModule)
	n.revenue.SetPauses(pauses)

	n.market.SetState(manager)
	n.market.SetAdmin(cfg.Admin)
	n.market.SetPlatformAddress(cfg.Platform)
	n.market.SetPauses(pauses)

	if err := n.authz.Bootstrap(creator.UpdatersResource, cfg.Admin); err != nil {
		return nil, err
	}
	if err := n.authz.Bootstrap(usage.RecordersResource, cfg.Admin); err != nil {
		return nil, err
	}
	for _, module := range [][20]byte{promptModule, revenueModule} {
		if err := n.authz.Authorize(creator.UpdatersResource, cfg.Admin, module); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// SetLogger replaces the node logger.
func (n *Node) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	n.logger = logger
}

// SetNowFunc overrides the time source of every engine for deterministic
// testing.
func (n *Node) SetNowFunc(now func() int64) {
	n.creator.SetNowFunc(now)
	n.prompt.SetNowFunc(now)
	n.usage.SetNowFunc(now)
	n.market.SetNowFunc(now)
}

// SetPayer overrides the withdrawal payment backend.
func (n *Node) SetPayer(payer revenue.Payer) {
	n.revenue.SetPayer(payer)
}

func (n *Node) setEmitters(emitter events.Emitter) {
	n.authz.SetEmitter(emitter)
	n.creator.SetEmitter(emitter)
	n.prompt.SetEmitter(emitter)
	n.usage.SetEmitter(emitter)
	n.revenue.SetEmitter(emitter)
	n.market.SetEmitter(emitter)
}

// withEvents runs fn with a staged event buffer wired into every engine. The
// buffer is merged into the canonical log only when fn succeeds.
func (n *Node) withEvents(fn func() error) error {
	buf := &events.Buffer{}
	n.setEmitters(buf)
	defer n.setEmitters(nil)
	if err := fn(); err != nil {
		return err
	}
	n.eventLog = append(n.eventLog, buf.Events()...)
	return nil
}

// Events returns a copy of the canonical event log.
func (n *Node) Events() []types.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]types.Event, len(n.eventLog))
	for i := range n.eventLog {
		out[i] = n.eventLog[i].Clone()
	}
	return out
}

// --- accounts ---

// Deposit credits freshly funded value onto the account.
func (n *Node) Deposit(addr [20]byte, amount *big.Int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return common.Credit(n.state, addr, amount)
}

// Balance returns the spendable account balance.
func (n *Node) Balance(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	account, err := n.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	if account == nil || account.Balance == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(account.Balance), nil
}

// --- authorization ---

// Authorize grants privileged-caller status on the resource.
func (n *Node) Authorize(resource string, caller [20]byte, identity [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withEvents(func() error {
		return n.authz.Authorize(resource, caller, identity)
	})
}

// RevokeAuthorization removes privileged-caller status on the resource.
func (n *Node) RevokeAuthorization(resource string, caller [20]byte, identity [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withEvents(func() error {
		return n.authz.Revoke(resource, caller, identity)
	})
}

// IsAuthorized reports whether the identity is privileged on the resource.
func (n *Node) IsAuthorized(resource string, identity [20]byte) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.authz.IsAuthorized(resource, identity)
}

// ResourceAdmin returns the admin identity of the resource.
func (n *Node) ResourceAdmin(resource string) ([20]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.authz.Admin(resource)
}

// --- creator registry ---

// RegisterCreator creates a profile for the caller.
func (n *Node) RegisterCreator(caller [20]byte, username string, profileURI string) (*creator.Profile, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var profile *creator.Profile
	err := n.withEvents(func() error {
		var err error
		profile, err = n.creator.Register(caller, username, profileURI)
		return err
	})
	if err != nil {
		return nil, err
	}
	n.logger.Info("creator registered", "username", username)
	return profile, nil
}

// UpdateCreatorProfile replaces the caller's profile URI.
func (n *Node) UpdateCreatorProfile(caller [20]byte, profileURI string) (*creator.Profile, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var profile *creator.Profile
	err := n.withEvents(func() error {
		var err error
		profile, err = n.creator.UpdateProfile(caller, profileURI)
		return err
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateCreatorReputation replaces a creator's reputation score. The caller
// must be the registry admin or an enrolled updater.
func (n *Node) UpdateCreatorReputation(caller [20]byte, target [20]byte, score uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withEvents(func() error {
		return n.creator.UpdateReputation(caller, target, score)
	})
}

// VerifyCreator marks the target creator as verified. Admin only.
func (n *Node) VerifyCreator(caller [20]byte, target [20]byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withEvents(func() error {
		return n.creator.Verify(caller, target)
	})
}

// CreatorProfile returns the stored profile for the identity.
func (n *Node) CreatorProfile(addr [20]byte) (*creator.Profile, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.creator.Profile(addr)
}

// TotalCreators returns the number of registered creators.
func (n *Node) TotalCreators() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.creator.TotalCreators()
}

// --- prompt registry ---

// MintPrompt registers a new prompt asset for the caller.
func (n *Node) MintPrompt(caller [20]byte, contentHash [32]byte, modelType string, royaltyBps uint32, metadataURI string) (*prompt.Asset, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var asset *prompt.Asset
	err := n.withEvents(func() error {
		var err error
		asset, err = n.prompt.Mint(caller, contentHash, modelType, royaltyBps, metadataURI)
		return err
	})
	if err != nil {
		return nil, err
	}
	n.logger.Info("prompt minted", "id", asset.ID, "model", asset.ModelType)
	return asset, nil
}

// PromptAsset returns the stored asset for the id.
func (n *Node) PromptAsset(id uint64) (*prompt.Asset, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prompt.Get(id)
}

// PromptURI returns the metadata reference of the asset.
func (n *Node) PromptURI(id uint64) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prompt.URI(id)
}

// TotalPrompts returns the number of minted assets.
func (n *Node) TotalPrompts() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.prompt.TotalPrompts()
}

// --- usage ledger ---

// RecordUsage appends a usage entry and bumps the asset's running counter.
// The ledger accepts ids the registry does not track, so an unknown prompt
// only skips the counter bump.
func (n *Node) RecordUsage(invoker [20]byte, promptID uint64, caller [20]byte, fee *big.Int, sessionID string) (*usage.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var record *usage.Record
	err := n.withEvents(func() error {
		var err error
		record, err = n.usage.Record(invoker, promptID, caller, fee, sessionID)
		if err != nil {
			return err
		}
		if _, err := n.prompt.RecordUsage(promptID, caller); err != nil && !errors.Is(err, prompt.ErrNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// UsageRecords returns a page of the per-prompt log in insertion order.
func (n *Node) UsageRecords(promptID uint64, offset uint64, limit uint64) ([]*usage.Record, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.usage.Records(promptID, offset, limit)
}

// PromptUsageCount returns the number of ledger entries for the prompt.
func (n *Node) PromptUsageCount(promptID uint64) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.usage.PromptUsageCount(promptID)
}

// CallerTotalCalls returns the number of ledger entries attributed to the caller.
func (n *Node) CallerTotalCalls(addr [20]byte) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.usage.CallerTotalCalls(addr)
}

// TotalUsageRecords returns the global length of the usage ledger.
func (n *Node) TotalUsageRecords() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.usage.TotalRecords()
}

// --- revenue splitter ---

// DistributeRevenue debits the payer, splits the amount per the configured
// shares and accrues the three pending balances.
func (n *Node) DistributeRevenue(from [20]byte, creatorAddr [20]byte, amount *big.Int) (*revenue.Distribution, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var dist *revenue.Distribution
	err := n.withEvents(func() error {
		var err error
		dist, err = n.revenue.Distribute(from, creatorAddr, amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dist, nil
}

// WithdrawEarnings pays out the creator's full pending balance.
func (n *Node) WithdrawEarnings(creatorAddr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var amount *big.Int
	err := n.withEvents(func() error {
		var err error
		amount, err = n.revenue.Withdraw(creatorAddr)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// WithdrawPlatform pays out the platform balance to the platform account.
func (n *Node) WithdrawPlatform(caller [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var amount *big.Int
	err := n.withEvents(func() error {
		var err error
		amount, err = n.revenue.WithdrawPlatform(caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// WithdrawTreasury pays out the treasury balance to the treasury account.
func (n *Node) WithdrawTreasury(caller [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var amount *big.Int
	err := n.withEvents(func() error {
		var err error
		amount, err = n.revenue.WithdrawTreasury(caller)
		return err
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// UpdateRevenueShares replaces the split configuration. Admin only.
func (n *Node) UpdateRevenueShares(caller [20]byte, creatorBps, platformBps, treasuryBps uint32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withEvents(func() error {
		return n.revenue.UpdateShares(caller, creatorBps, platformBps, treasuryBps)
	})
}

// AvailableEarnings returns the creator's pending balance.
func (n *Node) AvailableEarnings(addr [20]byte) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revenue.AvailableEarnings(addr)
}

// PlatformEarnings returns the platform pending balance.
func (n *Node) PlatformEarnings() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revenue.PlatformEarnings()
}

// TreasuryEarnings returns the treasury pending balance.
func (n *Node) TreasuryEarnings() (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revenue.TreasuryEarnings()
}

// RevenueShares returns the active split configuration.
func (n *Node) RevenueShares() (revenue.Shares, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.revenue.CurrentShares()
}

// --- marketplace ---

// CreateListing stores a new active listing for the seller.
func (n *Node) CreateListing(seller [20]byte, promptID uint64, price *big.Int, duration int64) (*market.Listing, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var listing *market.Listing
	err := n.withEvents(func() error {
		var err error
		listing, err = n.market.CreateListing(seller, promptID, price, duration)
		return err
	})
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// CancelListing deactivates the seller's listing.
func (n *Node) CancelListing(caller [20]byte, listingID uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withEvents(func() error {
		return n.market.CancelListing(caller, listingID)
	})
}

// PurchaseAccess settles a purchase and grants timed access to the prompt.
func (n *Node) PurchaseAccess(buyer [20]byte, listingID uint64, payment *big.Int) (*market.AccessGrant, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var grant *market.AccessGrant
	err := n.withEvents(func() error {
		var err error
		grant, err = n.market.PurchaseAccess(buyer, listingID, payment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}

// HasActiveAccess reports whether the identity holds an unexpired grant.
func (n *Node) HasActiveAccess(identity [20]byte, promptID uint64) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.HasActiveAccess(identity, promptID)
}

// MarketListing returns the stored listing for the id.
func (n *Node) MarketListing(id uint64) (*market.Listing, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.Listing(id)
}

// AccessGrant returns the stored grant for (buyer, promptID), expired or not.
func (n *Node) AccessGrant(buyer [20]byte, promptID uint64) (*market.AccessGrant, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.Access(buyer, promptID)
}

// TotalListings returns the number of listings ever created.
func (n *Node) TotalListings() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.TotalListings()
}

// MarketFee returns the active platform fee in basis points.
func (n *Node) MarketFee() (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.market.CurrentFee()
}

// UpdateMarketFee replaces the platform fee. Admin only.
func (n *Node) UpdateMarketFee(caller [20]byte, bps uint64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.withEvents(func() error {
		return n.market.UpdateFee(caller, bps)
	})
}
