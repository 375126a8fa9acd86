package state

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"promptledger/core/types"
	"promptledger/native/authz"
	"promptledger/native/creator"
	"promptledger/native/market"
	"promptledger/native/prompt"
	"promptledger/native/revenue"
	"promptledger/native/usage"
	"promptledger/storage"
)

// Manager persists every table the native engines operate on. Keys are the
// keccak256 digest of a prefixed path so arbitrary usernames and URIs cannot
// collide with structural keys; account records are RLP-encoded, domain
// records JSON-encoded.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager over the provided key-value backend.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var (
	prefixAccount         = "account"
	prefixAllowlist       = "authz"
	prefixCreatorProfile  = "creator:profile"
	prefixCreatorUsername = "creator:username"
	keyCreatorCount       = "creator:count"
	prefixPromptAsset     = "prompt:asset"
	prefixPromptHash      = "prompt:hash"
	keyPromptCount        = "prompt:count"
	prefixUsageRecord     = "usage:record"
	prefixUsageIndex      = "usage:index"
	prefixUsageCount      = "usage:count"
	prefixUsageCaller     = "usage:caller"
	keyUsageTotal         = "usage:total"
	prefixRevenuePending  = "revenue:pending"
	keyRevenuePlatform    = "revenue:platform"
	keyRevenueTreasury    = "revenue:treasury"
	keyRevenueShares      = "revenue:shares"
	prefixListing         = "market:listing"
	keyListingCount       = "market:listing-count"
	prefixAccessGrant     = "market:grant"
	keyMarketFee          = "market:fee"
)

func stateKey(prefix string, parts ...[]byte) []byte {
	buf := []byte(prefix)
	for _, part := range parts {
		buf = append(buf, ':')
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func u64be(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func (m *Manager) getRaw(key []byte) ([]byte, bool, error) {
	value, err := m.db.Get(key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	value, ok, err := m.getRaw(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(value, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, v interface{}) error {
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

func (m *Manager) getUint(key []byte) (uint64, error) {
	value, ok, err := m.getRaw(key)
	if err != nil || !ok {
		return 0, err
	}
	if len(value) != 8 {
		return 0, errors.New("state: malformed counter value")
	}
	return binary.BigEndian.Uint64(value), nil
}

func (m *Manager) putUint(key []byte, v uint64) error {
	return m.db.Put(key, u64be(v))
}

func (m *Manager) getBig(key []byte) (*big.Int, error) {
	value, ok, err := m.getRaw(key)
	if err != nil || !ok {
		return big.NewInt(0), err
	}
	return new(big.Int).SetBytes(value), nil
}

func (m *Manager) putBig(key []byte, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return errors.New("state: balance must be non-negative")
	}
	return m.db.Put(key, v.Bytes())
}

// --- accounts ---

type accountRLP struct {
	Nonce   uint64
	Balance *big.Int
}

// GetAccount loads the account stored for the address, or nil when absent.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	value, ok, err := m.getRaw(stateKey(prefixAccount, addr))
	if err != nil || !ok {
		return nil, err
	}
	stored := new(accountRLP)
	if err := rlp.DecodeBytes(value, stored); err != nil {
		return nil, err
	}
	return &types.Account{Nonce: stored.Nonce, Balance: stored.Balance}, nil
}

// PutAccount stores the account for the address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	if account == nil {
		return m.db.Delete(stateKey(prefixAccount, addr))
	}
	balance := account.Balance
	if balance == nil {
		balance = big.NewInt(0)
	}
	encoded, err := rlp.EncodeToBytes(&accountRLP{Nonce: account.Nonce, Balance: balance})
	if err != nil {
		return err
	}
	return m.db.Put(stateKey(prefixAccount, addr), encoded)
}

// --- authorization ---

func (m *Manager) AllowlistGet(resource string) (*authz.Allowlist, bool, error) {
	list := new(authz.Allowlist)
	ok, err := m.getJSON(stateKey(prefixAllowlist, []byte(resource)), list)
	if err != nil || !ok {
		return nil, false, err
	}
	return list, true, nil
}

func (m *Manager) AllowlistPut(list *authz.Allowlist) error {
	if list == nil {
		return nil
	}
	return m.putJSON(stateKey(prefixAllowlist, []byte(list.Resource)), list)
}

// --- creator registry ---

func (m *Manager) CreatorProfileGet(addr [20]byte) (*creator.Profile, bool, error) {
	profile := new(creator.Profile)
	ok, err := m.getJSON(stateKey(prefixCreatorProfile, addr[:]), profile)
	if err != nil || !ok {
		return nil, false, err
	}
	if profile.TotalEarnings == nil {
		profile.TotalEarnings = big.NewInt(0)
	}
	return profile, true, nil
}

func (m *Manager) CreatorProfilePut(profile *creator.Profile) error {
	if profile == nil {
		return nil
	}
	return m.putJSON(stateKey(prefixCreatorProfile, profile.Address[:]), profile)
}

func (m *Manager) CreatorUsernameLookup(username string) ([20]byte, bool, error) {
	var addr [20]byte
	value, ok, err := m.getRaw(stateKey(prefixCreatorUsername, []byte(username)))
	if err != nil || !ok {
		return addr, false, err
	}
	copy(addr[:], value)
	return addr, true, nil
}

func (m *Manager) CreatorUsernameIndex(username string, addr [20]byte) error {
	return m.db.Put(stateKey(prefixCreatorUsername, []byte(username)), addr[:])
}

func (m *Manager) CreatorCount() (uint64, error) {
	return m.getUint(stateKey(keyCreatorCount))
}

func (m *Manager) CreatorCountPut(count uint64) error {
	return m.putUint(stateKey(keyCreatorCount), count)
}

// --- prompt registry ---

func (m *Manager) PromptGet(id uint64) (*prompt.Asset, bool, error) {
	asset := new(prompt.Asset)
	ok, err := m.getJSON(stateKey(prefixPromptAsset, u64be(id)), asset)
	if err != nil || !ok {
		return nil, false, err
	}
	return asset, true, nil
}

func (m *Manager) PromptPut(asset *prompt.Asset) error {
	if asset == nil {
		return nil
	}
	return m.putJSON(stateKey(prefixPromptAsset, u64be(asset.ID)), asset)
}

func (m *Manager) PromptHashLookup(hash [32]byte) (uint64, bool, error) {
	value, ok, err := m.getRaw(stateKey(prefixPromptHash, hash[:]))
	if err != nil || !ok {
		return 0, false, err
	}
	if len(value) != 8 {
		return 0, false, errors.New("state: malformed prompt hash index")
	}
	return binary.BigEndian.Uint64(value), true, nil
}

func (m *Manager) PromptHashIndex(hash [32]byte, id uint64) error {
	return m.db.Put(stateKey(prefixPromptHash, hash[:]), u64be(id))
}

func (m *Manager) PromptCount() (uint64, error) {
	return m.getUint(stateKey(keyPromptCount))
}

func (m *Manager) PromptCountPut(count uint64) error {
	return m.putUint(stateKey(keyPromptCount), count)
}

// --- usage ledger ---

func (m *Manager) UsageRecordGet(pos uint64) (*usage.Record, bool, error) {
	record := new(usage.Record)
	ok, err := m.getJSON(stateKey(prefixUsageRecord, u64be(pos)), record)
	if err != nil || !ok {
		return nil, false, err
	}
	if record.Fee == nil {
		record.Fee = big.NewInt(0)
	}
	return record, true, nil
}

func (m *Manager) UsageRecordPut(pos uint64, record *usage.Record) error {
	if record == nil {
		return nil
	}
	return m.putJSON(stateKey(prefixUsageRecord, u64be(pos)), record)
}

func (m *Manager) UsageTotal() (uint64, error) {
	return m.getUint(stateKey(keyUsageTotal))
}

func (m *Manager) UsageTotalPut(total uint64) error {
	return m.putUint(stateKey(keyUsageTotal), total)
}

func (m *Manager) UsagePromptIndexGet(promptID uint64, seq uint64) (uint64, bool, error) {
	value, ok, err := m.getRaw(stateKey(prefixUsageIndex, u64be(promptID), u64be(seq)))
	if err != nil || !ok {
		return 0, false, err
	}
	if len(value) != 8 {
		return 0, false, errors.New("state: malformed usage index entry")
	}
	return binary.BigEndian.Uint64(value), true, nil
}

func (m *Manager) UsagePromptIndexPut(promptID uint64, seq uint64, pos uint64) error {
	return m.db.Put(stateKey(prefixUsageIndex, u64be(promptID), u64be(seq)), u64be(pos))
}

func (m *Manager) UsagePromptCount(promptID uint64) (uint64, error) {
	return m.getUint(stateKey(prefixUsageCount, u64be(promptID)))
}

func (m *Manager) UsagePromptCountPut(promptID uint64, count uint64) error {
	return m.putUint(stateKey(prefixUsageCount, u64be(promptID)), count)
}

func (m *Manager) UsageCallerCount(addr [20]byte) (uint64, error) {
	return m.getUint(stateKey(prefixUsageCaller, addr[:]))
}

func (m *Manager) UsageCallerCountPut(addr [20]byte, count uint64) error {
	return m.putUint(stateKey(prefixUsageCaller, addr[:]), count)
}

// --- revenue splitter ---

func (m *Manager) RevenuePendingGet(addr [20]byte) (*big.Int, error) {
	return m.getBig(stateKey(prefixRevenuePending, addr[:]))
}

func (m *Manager) RevenuePendingPut(addr [20]byte, amount *big.Int) error {
	return m.putBig(stateKey(prefixRevenuePending, addr[:]), amount)
}

func (m *Manager) RevenuePlatformGet() (*big.Int, error) {
	return m.getBig(stateKey(keyRevenuePlatform))
}

func (m *Manager) RevenuePlatformPut(amount *big.Int) error {
	return m.putBig(stateKey(keyRevenuePlatform), amount)
}

func (m *Manager) RevenueTreasuryGet() (*big.Int, error) {
	return m.getBig(stateKey(keyRevenueTreasury))
}

func (m *Manager) RevenueTreasuryPut(amount *big.Int) error {
	return m.putBig(stateKey(keyRevenueTreasury), amount)
}

func (m *Manager) RevenueSharesGet() (*revenue.Shares, bool, error) {
	shares := new(revenue.Shares)
	ok, err := m.getJSON(stateKey(keyRevenueShares), shares)
	if err != nil || !ok {
		return nil, false, err
	}
	return shares, true, nil
}

func (m *Manager) RevenueSharesPut(shares revenue.Shares) error {
	return m.putJSON(stateKey(keyRevenueShares), shares)
}

// --- marketplace ---

func (m *Manager) ListingGet(id uint64) (*market.Listing, bool, error) {
	listing := new(market.Listing)
	ok, err := m.getJSON(stateKey(prefixListing, u64be(id)), listing)
	if err != nil || !ok {
		return nil, false, err
	}
	if listing.Price == nil {
		listing.Price = big.NewInt(0)
	}
	return listing, true, nil
}

func (m *Manager) ListingPut(listing *market.Listing) error {
	if listing == nil {
		return nil
	}
	return m.putJSON(stateKey(prefixListing, u64be(listing.ID)), listing)
}

func (m *Manager) ListingCount() (uint64, error) {
	return m.getUint(stateKey(keyListingCount))
}

func (m *Manager) ListingCountPut(count uint64) error {
	return m.putUint(stateKey(keyListingCount), count)
}

func (m *Manager) AccessGrantGet(buyer [20]byte, promptID uint64) (*market.AccessGrant, bool, error) {
	grant := new(market.AccessGrant)
	ok, err := m.getJSON(stateKey(prefixAccessGrant, buyer[:], u64be(promptID)), grant)
	if err != nil || !ok {
		return nil, false, err
	}
	return grant, true, nil
}

func (m *Manager) AccessGrantPut(grant *market.AccessGrant) error {
	if grant == nil {
		return nil
	}
	return m.putJSON(stateKey(prefixAccessGrant, grant.Buyer[:], u64be(grant.PromptID)), grant)
}

func (m *Manager) MarketFeeGet() (uint64, bool, error) {
	value, ok, err := m.getRaw(stateKey(keyMarketFee))
	if err != nil || !ok {
		return 0, false, err
	}
	if len(value) != 8 {
		return 0, false, errors.New("state: malformed fee value")
	}
	return binary.BigEndian.Uint64(value), true, nil
}

func (m *Manager) MarketFeePut(bps uint64) error {
	return m.putUint(stateKey(keyMarketFee), bps)
}
