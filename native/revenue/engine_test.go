package revenue

import (
	"errors"
	"math/big"
	"testing"

	"promptledger/core/types"
	nativecommon "promptledger/native/common"
)

type mockState struct {
	pending  map[[20]byte]*big.Int
	platform *big.Int
	treasury *big.Int
	shares   *Shares
	accounts map[string]*types.Account
}

func newMockState() *mockState {
	return &mockState{
		pending:  make(map[[20]byte]*big.Int),
		platform: big.NewInt(0),
		treasury: big.NewInt(0),
		accounts: make(map[string]*types.Account),
	}
}

func (m *mockState) RevenuePendingGet(addr [20]byte) (*big.Int, error) {
	if balance, ok := m.pending[addr]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) RevenuePendingPut(addr [20]byte, amount *big.Int) error {
	m.pending[addr] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) RevenuePlatformGet() (*big.Int, error) {
	return new(big.Int).Set(m.platform), nil
}

func (m *mockState) RevenuePlatformPut(amount *big.Int) error {
	m.platform = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) RevenueTreasuryGet() (*big.Int, error) {
	return new(big.Int).Set(m.treasury), nil
}

func (m *mockState) RevenueTreasuryPut(amount *big.Int) error {
	m.treasury = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) RevenueSharesGet() (*Shares, bool, error) {
	if m.shares == nil {
		return nil, false, nil
	}
	copied := *m.shares
	return &copied, true, nil
}

func (m *mockState) RevenueSharesPut(shares Shares) error {
	m.shares = &shares
	return nil
}

func (m *mockState) GetAccount(addr []byte) (*types.Account, error) {
	account, ok := m.accounts[string(addr)]
	if !ok {
		return nil, nil
	}
	return account.Clone(), nil
}

func (m *mockState) PutAccount(addr []byte, account *types.Account) error {
	m.accounts[string(addr)] = account.Clone()
	return nil
}

func (m *mockState) balance(addr [20]byte) *big.Int {
	account, ok := m.accounts[string(addr[:])]
	if !ok || account.Balance == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(account.Balance)
}

var (
	admin    = [20]byte{0xad}
	vault    = [20]byte{0xfa}
	platform = [20]byte{0x02}
	treasury = [20]byte{0x03}
	alice    = [20]byte{0x11}
	payer    = [20]byte{0x42}
)

func newTestEngine(t *testing.T) (*Engine, *mockState) {
	t.Helper()
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetAdmin(admin)
	engine.SetVault(vault)
	engine.SetPlatformAddress(platform)
	engine.SetTreasuryAddress(treasury)
	return engine, state
}

func fund(t *testing.T, state *mockState, addr [20]byte, amount int64) {
	t.Helper()
	if err := nativecommon.Credit(state, addr, big.NewInt(amount)); err != nil {
		t.Fatalf("fund account: %v", err)
	}
}

func TestDistributeSplitsPerDefaultShares(t *testing.T) {
	engine, state := newTestEngine(t)
	fund(t, state, payer, 10_000)

	dist, err := engine.Distribute(payer, alice, big.NewInt(10_000))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if dist.CreatorAmount.Cmp(big.NewInt(7_000)) != 0 {
		t.Fatalf("creator amount = %v, want 7000", dist.CreatorAmount)
	}
	if dist.PlatformAmount.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("platform amount = %v, want 2000", dist.PlatformAmount)
	}
	if dist.TreasuryAmount.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("treasury amount = %v, want 1000", dist.TreasuryAmount)
	}
	if state.balance(payer).Sign() != 0 {
		t.Fatalf("payer retains %v", state.balance(payer))
	}
	if state.balance(vault).Cmp(big.NewInt(10_000)) != 0 {
		t.Fatalf("vault = %v, want 10000", state.balance(vault))
	}
}

func TestDistributeRemainderGoesToTreasury(t *testing.T) {
	engine, state := newTestEngine(t)
	fund(t, state, payer, 10_001)

	dist, err := engine.Distribute(payer, alice, big.NewInt(10_001))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	sum := new(big.Int).Add(dist.CreatorAmount, dist.PlatformAmount)
	sum.Add(sum, dist.TreasuryAmount)
	if sum.Cmp(big.NewInt(10_001)) != 0 {
		t.Fatalf("split loses value: sum = %v", sum)
	}
	// 7000.7 truncates to 7000, 2000.2 to 2000; the treasury absorbs the rest.
	if dist.TreasuryAmount.Cmp(big.NewInt(1_001)) != 0 {
		t.Fatalf("treasury amount = %v, want 1001", dist.TreasuryAmount)
	}
}

func TestDistributeValidation(t *testing.T) {
	engine, state := newTestEngine(t)
	fund(t, state, payer, 100)
	if _, err := engine.Distribute(payer, alice, big.NewInt(0)); !errors.Is(err, ErrNoValue) {
		t.Fatalf("error = %v, want ErrNoValue", err)
	}
	if _, err := engine.Distribute(payer, alice, nil); !errors.Is(err, ErrNoValue) {
		t.Fatalf("error = %v, want ErrNoValue", err)
	}
	if _, err := engine.Distribute(payer, [20]byte{}, big.NewInt(10)); !errors.Is(err, ErrInvalidCreator) {
		t.Fatalf("error = %v, want ErrInvalidCreator", err)
	}
	if _, err := engine.Distribute(payer, alice, big.NewInt(1_000)); !errors.Is(err, nativecommon.ErrInsufficientFunds) {
		t.Fatalf("error = %v, want ErrInsufficientFunds", err)
	}
}

func TestDistributeAccumulatesPending(t *testing.T) {
	engine, state := newTestEngine(t)
	fund(t, state, payer, 20_000)
	if _, err := engine.Distribute(payer, alice, big.NewInt(10_000)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if _, err := engine.Distribute(payer, alice, big.NewInt(10_000)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	pending, err := engine.AvailableEarnings(alice)
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	if pending.Cmp(big.NewInt(14_000)) != 0 {
		t.Fatalf("pending = %v, want 14000", pending)
	}
	platformBalance, _ := engine.PlatformEarnings()
	if platformBalance.Cmp(big.NewInt(4_000)) != 0 {
		t.Fatalf("platform = %v, want 4000", platformBalance)
	}
	treasuryBalance, _ := engine.TreasuryEarnings()
	if treasuryBalance.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("treasury = %v, want 2000", treasuryBalance)
	}
}

func TestWithdrawZeroesThenPays(t *testing.T) {
	engine, state := newTestEngine(t)
	fund(t, state, payer, 10_000)
	if _, err := engine.Distribute(payer, alice, big.NewInt(10_000)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	amount, err := engine.Withdraw(alice)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if amount.Cmp(big.NewInt(7_000)) != 0 {
		t.Fatalf("withdrawn = %v, want 7000", amount)
	}
	if state.balance(alice).Cmp(big.NewInt(7_000)) != 0 {
		t.Fatalf("alice balance = %v, want 7000", state.balance(alice))
	}
	if _, err := engine.Withdraw(alice); !errors.Is(err, ErrNoEarnings) {
		t.Fatalf("second withdraw error = %v, want ErrNoEarnings", err)
	}
}

type failingPayer struct{}

func (failingPayer) Pay(from [20]byte, to [20]byte, amount *big.Int) error {
	return errors.New("rail down")
}

func TestWithdrawRestoresPendingOnFailure(t *testing.T) {
	engine, state := newTestEngine(t)
	fund(t, state, payer, 10_000)
	if _, err := engine.Distribute(payer, alice, big.NewInt(10_000)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	engine.SetPayer(failingPayer{})

	if _, err := engine.Withdraw(alice); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("error = %v, want ErrTransferFailed", err)
	}
	pending, _ := engine.AvailableEarnings(alice)
	if pending.Cmp(big.NewInt(7_000)) != 0 {
		t.Fatalf("pending = %v, want 7000 restored", pending)
	}
	if state.balance(alice).Sign() != 0 {
		t.Fatalf("alice credited despite failed transfer: %v", state.balance(alice))
	}
}

func TestSingletonWithdrawalsAdminOnly(t *testing.T) {
	engine, state := newTestEngine(t)
	fund(t, state, payer, 10_000)
	if _, err := engine.Distribute(payer, alice, big.NewInt(10_000)); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if _, err := engine.WithdrawPlatform(alice); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("error = %v, want ErrNotAdmin", err)
	}
	amount, err := engine.WithdrawPlatform(admin)
	if err != nil {
		t.Fatalf("withdraw platform: %v", err)
	}
	if amount.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("platform amount = %v, want 2000", amount)
	}
	if state.balance(platform).Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("platform balance = %v, want 2000", state.balance(platform))
	}
	amount, err = engine.WithdrawTreasury(admin)
	if err != nil {
		t.Fatalf("withdraw treasury: %v", err)
	}
	if amount.Cmp(big.NewInt(1_000)) != 0 {
		t.Fatalf("treasury amount = %v, want 1000", amount)
	}
	if _, err := engine.WithdrawTreasury(admin); !errors.Is(err, ErrNoEarnings) {
		t.Fatalf("error = %v, want ErrNoEarnings", err)
	}
}

func TestUpdateSharesValidatesSum(t *testing.T) {
	engine, _ := newTestEngine(t)
	if err := engine.UpdateShares(alice, 6000, 3000, 1000); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("error = %v, want ErrNotAdmin", err)
	}
	if err := engine.UpdateShares(admin, 6000, 3000, 2000); !errors.Is(err, ErrInvalidShares) {
		t.Fatalf("error = %v, want ErrInvalidShares", err)
	}
	if err := engine.UpdateShares(admin, 6000, 3000, 1000); err != nil {
		t.Fatalf("update shares: %v", err)
	}
	shares, err := engine.CurrentShares()
	if err != nil {
		t.Fatalf("current shares: %v", err)
	}
	if shares.CreatorBps != 6000 || shares.PlatformBps != 3000 || shares.TreasuryBps != 1000 {
		t.Fatalf("shares = %+v", shares)
	}
}

func TestUpdatedSharesApplyToNextDistribution(t *testing.T) {
	engine, state := newTestEngine(t)
	fund(t, state, payer, 10_000)
	if err := engine.UpdateShares(admin, 6000, 3000, 1000); err != nil {
		t.Fatalf("update shares: %v", err)
	}
	dist, err := engine.Distribute(payer, alice, big.NewInt(10_000))
	if err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if dist.CreatorAmount.Cmp(big.NewInt(6_000)) != 0 {
		t.Fatalf("creator amount = %v, want 6000", dist.CreatorAmount)
	}
	if dist.PlatformAmount.Cmp(big.NewInt(3_000)) != 0 {
		t.Fatalf("platform amount = %v, want 3000", dist.PlatformAmount)
	}
}

func TestDistributeRequiresVault(t *testing.T) {
	state := newMockState()
	engine := NewEngine()
	engine.SetState(state)
	engine.SetAdmin(admin)
	fund(t, state, payer, 100)
	if _, err := engine.Distribute(payer, alice, big.NewInt(100)); !errors.Is(err, ErrVaultNotSet) {
		t.Fatalf("error = %v, want ErrVaultNotSet", err)
	}
}

func TestSplitHelper(t *testing.T) {
	dist := Split(big.NewInt(999), DefaultShares())
	sum := new(big.Int).Add(dist.CreatorAmount, dist.PlatformAmount)
	sum.Add(sum, dist.TreasuryAmount)
	if sum.Cmp(big.NewInt(999)) != 0 {
		t.Fatalf("split loses value: sum = %v", sum)
	}
	if dist.CreatorAmount.Cmp(big.NewInt(699)) != 0 {
		t.Fatalf("creator amount = %v, want 699", dist.CreatorAmount)
	}
}
