package common

import (
	"errors"
	"math/big"

	"promptledger/core/types"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the account balance.
	ErrInsufficientFunds = errors.New("insufficient balance")
	// ErrInvalidAmount is returned for nil or non-positive transfer amounts.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// AccountState is the narrow account-ledger surface the monetary modules
// require. The core state manager satisfies it.
type AccountState interface {
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// EnsureAccount normalises a possibly-nil account into a zeroed one.
func EnsureAccount(acc *types.Account) *types.Account {
	if acc == nil {
		return types.NewAccount()
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return acc
}

// Credit adds amount to the recipient balance.
func Credit(state AccountState, to [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := state.GetAccount(to[:])
	if err != nil {
		return err
	}
	acc = EnsureAccount(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return state.PutAccount(to[:], acc)
}

// Debit subtracts amount from the account balance, rejecting overdrafts.
func Debit(state AccountState, from [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	acc, err := state.GetAccount(from[:])
	if err != nil {
		return err
	}
	acc = EnsureAccount(acc)
	if acc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	return state.PutAccount(from[:], acc)
}

// Transfer debits the sender and credits the recipient as one logical move.
func Transfer(state AccountState, from [20]byte, to [20]byte, amount *big.Int) error {
	if err := Debit(state, from, amount); err != nil {
		return err
	}
	return Credit(state, to, amount)
}
