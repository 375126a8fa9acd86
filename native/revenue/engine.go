package revenue

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"promptledger/core/events"
	"promptledger/core/types"
	nativecommon "promptledger/native/common"
	"promptledger/native/creator"
)

var (
	// ErrNilState is returned when the engine has no state backend configured.
	ErrNilState = errors.New("revenue splitter: state not configured")
	// ErrNoValue is returned when a distribution carries no value.
	ErrNoValue = errors.New("revenue splitter: no value sent")
	// ErrInvalidCreator is returned when the creator identity is the zero address.
	ErrInvalidCreator = errors.New("revenue splitter: invalid creator address")
	// ErrNoEarnings is returned when the pending balance to withdraw is zero.
	ErrNoEarnings = errors.New("revenue splitter: no earnings available")
	// ErrInvalidShares is returned unless the shares sum to exactly 10000.
	ErrInvalidShares = errors.New("revenue splitter: shares must sum to 10000")
	// ErrNotAdmin is returned when a non-admin invokes an admin-only operation.
	ErrNotAdmin = errors.New("revenue splitter: caller is not the admin")
	// ErrVaultNotSet is returned when no vault account is configured.
	ErrVaultNotSet = errors.New("revenue splitter: vault not configured")
	// ErrTransferFailed wraps external payment failures. The pending balance
	// debited in the same call is restored before the error is returned.
	ErrTransferFailed = errors.New("revenue splitter: transfer failed")
)

const moduleName = "revenue"

type engineState interface {
	RevenuePendingGet(addr [20]byte) (*big.Int, error)
	RevenuePendingPut(addr [20]byte, amount *big.Int) error
	RevenuePlatformGet() (*big.Int, error)
	RevenuePlatformPut(amount *big.Int) error
	RevenueTreasuryGet() (*big.Int, error)
	RevenueTreasuryPut(amount *big.Int) error
	RevenueSharesGet() (*Shares, bool, error)
	RevenueSharesPut(shares Shares) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// Payer performs the external payment leg of a withdrawal. The default
// implementation moves value between ledger accounts; tests substitute a
// failing payer to exercise the rollback path.
type Payer interface {
	Pay(from [20]byte, to [20]byte, amount *big.Int) error
}

type accountPayer struct {
	state nativecommon.AccountState
}

func (p accountPayer) Pay(from [20]byte, to [20]byte, amount *big.Int) error {
	return nativecommon.Transfer(p.state, from, to, amount)
}

// creatorStats mirrors the earnings accumulator of the creator registry.
type creatorStats interface {
	AddEarnings(caller [20]byte, target [20]byte, amount *big.Int) error
}

// Engine accumulates distributed revenue into per-creator pending balances
// plus the platform and treasury singletons, and pays balances out through a
// zero-then-transfer discipline.
type Engine struct {
	state      engineState
	emitter    events.Emitter
	payer      Payer
	stats      creatorStats
	admin      [20]byte
	vault      [20]byte
	platform   [20]byte
	treasury   [20]byte
	moduleAddr [20]byte
	pauses     nativecommon.PauseView
}

// NewEngine constructs a revenue splitter engine with default dependencies.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) {
	e.state = state
	if e.payer == nil && state != nil {
		e.payer = accountPayer{state: state}
	}
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPayer overrides the payment backend used for withdrawals.
func (e *Engine) SetPayer(payer Payer) {
	if payer == nil {
		if e.state != nil {
			e.payer = accountPayer{state: e.state}
		}
		return
	}
	e.payer = payer
}

// SetCreatorStats wires the earnings accumulator of the creator registry.
func (e *Engine) SetCreatorStats(stats creatorStats) { e.stats = stats }

// SetAdmin configures the admin identity for shares and singleton withdrawals.
func (e *Engine) SetAdmin(admin [20]byte) { e.admin = admin }

// SetVault configures the holding account for undistributed value.
func (e *Engine) SetVault(vault [20]byte) { e.vault = vault }

// SetPlatformAddress configures the payout target for platform earnings.
func (e *Engine) SetPlatformAddress(addr [20]byte) { e.platform = addr }

// SetTreasuryAddress configures the payout target for treasury earnings.
func (e *Engine) SetTreasuryAddress(addr [20]byte) { e.treasury = addr }

// SetModuleAddress configures the identity used when pushing earnings into
// the creator registry.
func (e *Engine) SetModuleAddress(addr [20]byte) { e.moduleAddr = addr }

// SetPauses configures the pause switchboard consulted before mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || evt == nil || e.emitter == nil {
		return
	}
	e.emitter.Emit(WrapEvent(evt))
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func isZeroAddress(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}

func (e *Engine) shares() (Shares, error) {
	stored, ok, err := e.state.RevenueSharesGet()
	if err != nil {
		return Shares{}, err
	}
	if !ok || stored == nil {
		return DefaultShares(), nil
	}
	return *stored, nil
}

// Distribute debits the payer account, splits the amount per the configured
// shares and credits the three pending accumulators. The debited value is
// parked in the vault account until withdrawn.
func (e *Engine) Distribute(from [20]byte, creatorAddr [20]byte, amount *big.Int) (*Distribution, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrNoValue
	}
	if isZeroAddress(creatorAddr) {
		return nil, ErrInvalidCreator
	}
	if isZeroAddress(e.vault) {
		return nil, ErrVaultNotSet
	}
	if err := nativecommon.Transfer(e.state, from, e.vault, amount); err != nil {
		return nil, err
	}
	shares, err := e.shares()
	if err != nil {
		return nil, err
	}
	dist := Split(amount, shares)
	dist.Creator = creatorAddr

	pending, err := e.state.RevenuePendingGet(creatorAddr)
	if err != nil {
		return nil, err
	}
	pending = new(big.Int).Add(pending, dist.CreatorAmount)
	if err := e.state.RevenuePendingPut(creatorAddr, pending); err != nil {
		return nil, err
	}
	platform, err := e.state.RevenuePlatformGet()
	if err != nil {
		return nil, err
	}
	if err := e.state.RevenuePlatformPut(new(big.Int).Add(platform, dist.PlatformAmount)); err != nil {
		return nil, err
	}
	treasury, err := e.state.RevenueTreasuryGet()
	if err != nil {
		return nil, err
	}
	if err := e.state.RevenueTreasuryPut(new(big.Int).Add(treasury, dist.TreasuryAmount)); err != nil {
		return nil, err
	}
	if e.stats != nil {
		if err := e.stats.AddEarnings(e.moduleAddr, creatorAddr, dist.CreatorAmount); err != nil && !errors.Is(err, creator.ErrNotRegistered) {
			return nil, err
		}
	}
	e.emit(DistributedEvent(
		hexAddr(creatorAddr),
		dist.CreatorAmount.String(),
		dist.PlatformAmount.String(),
		dist.TreasuryAmount.String(),
		dist.Total.String(),
	))
	return &dist, nil
}

// Withdraw pays out the caller's full pending balance. The balance is zeroed
// strictly before the payment leg so a re-entrant attempt observes nothing to
// withdraw; a failed payment restores the balance and emits no event.
func (e *Engine) Withdraw(creatorAddr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pending, err := e.state.RevenuePendingGet(creatorAddr)
	if err != nil {
		return nil, err
	}
	if pending.Sign() == 0 {
		return nil, ErrNoEarnings
	}
	if err := e.state.RevenuePendingPut(creatorAddr, big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.pay(creatorAddr, pending); err != nil {
		if restoreErr := e.state.RevenuePendingPut(creatorAddr, pending); restoreErr != nil {
			return nil, restoreErr
		}
		return nil, err
	}
	e.emit(WithdrawnEvent(hexAddr(creatorAddr), pending.String()))
	return pending, nil
}

// WithdrawPlatform pays out the platform singleton balance. Admin only.
func (e *Engine) WithdrawPlatform(caller [20]byte) (*big.Int, error) {
	return e.withdrawSingleton(caller, e.platform, e.state.RevenuePlatformGet, e.state.RevenuePlatformPut)
}

// WithdrawTreasury pays out the treasury singleton balance. Admin only.
func (e *Engine) WithdrawTreasury(caller [20]byte) (*big.Int, error) {
	return e.withdrawSingleton(caller, e.treasury, e.state.RevenueTreasuryGet, e.state.RevenueTreasuryPut)
}

func (e *Engine) withdrawSingleton(caller [20]byte, recipient [20]byte, get func() (*big.Int, error), put func(*big.Int) error) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if caller != e.admin {
		return nil, ErrNotAdmin
	}
	balance, err := get()
	if err != nil {
		return nil, err
	}
	if balance.Sign() == 0 {
		return nil, ErrNoEarnings
	}
	if err := put(big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.pay(recipient, balance); err != nil {
		if restoreErr := put(balance); restoreErr != nil {
			return nil, restoreErr
		}
		return nil, err
	}
	e.emit(WithdrawnEvent(hexAddr(recipient), balance.String()))
	return balance, nil
}

func (e *Engine) pay(to [20]byte, amount *big.Int) error {
	if isZeroAddress(e.vault) {
		return ErrVaultNotSet
	}
	if e.payer == nil {
		return fmt.Errorf("%w: no payer configured", ErrTransferFailed)
	}
	if err := e.payer.Pay(e.vault, to, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// UpdateShares replaces the split configuration. Admin only; the three values
// must sum to exactly 10000 basis points.
func (e *Engine) UpdateShares(caller [20]byte, creatorBps, platformBps, treasuryBps uint32) error {
	if e == nil || e.state == nil {
		return ErrNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if caller != e.admin {
		return ErrNotAdmin
	}
	shares := Shares{CreatorBps: creatorBps, PlatformBps: platformBps, TreasuryBps: treasuryBps}
	if !shares.Valid() {
		return ErrInvalidShares
	}
	if err := e.state.RevenueSharesPut(shares); err != nil {
		return err
	}
	e.emit(SharesUpdatedEvent(
		strconv.FormatUint(uint64(creatorBps), 10),
		strconv.FormatUint(uint64(platformBps), 10),
		strconv.FormatUint(uint64(treasuryBps), 10),
	))
	return nil
}

// AvailableEarnings returns the creator's pending balance.
func (e *Engine) AvailableEarnings(addr [20]byte) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.RevenuePendingGet(addr)
}

// PlatformEarnings returns the platform singleton balance.
func (e *Engine) PlatformEarnings() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.RevenuePlatformGet()
}

// TreasuryEarnings returns the treasury singleton balance.
func (e *Engine) TreasuryEarnings() (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, ErrNilState
	}
	return e.state.RevenueTreasuryGet()
}

// CurrentShares returns the active split configuration.
func (e *Engine) CurrentShares() (Shares, error) {
	if e == nil || e.state == nil {
		return Shares{}, ErrNilState
	}
	return e.shares()
}
