// Package ledger provides the ordered account store that initialize runs
// against. Every Apply is serialized with every other Apply on the same store
// and commits all of its writes or none of them.
package ledger

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	sol "github.com/gagliardetto/solana-go"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	// ErrBalanceOverflow is returned when a credit would exceed what the
	// store can hold.
	ErrBalanceOverflow = errors.New("balance overflow")
)

// Account is a single addressable record on the ledger.
type Account struct {
	Address  sol.PublicKey
	Owner    sol.PublicKey
	Lamports uint64
	Data     []byte
}

// HoldsRecord reports whether a program has allocated the account. A plain
// system-owned balance does not count.
func (a *Account) HoldsRecord() bool {
	if a == nil {
		return false
	}
	return len(a.Data) > 0 || !a.Owner.Equals(sol.SystemProgramID)
}

func (a Account) clone() Account {
	if a.Data != nil {
		a.Data = append([]byte(nil), a.Data...)
	}
	return a
}

// Tx is the view of the ledger inside one Apply.
type Tx interface {
	// Slot is the slot the transaction commits at.
	Slot() uint64
	// Account returns staged writes first, then committed state.
	Account(ctx context.Context, addr sol.PublicKey) (*Account, error)
	// Put stages a write; it becomes visible to others only on commit.
	Put(acct Account)
}

// Store is implemented by Memory and Mongo.
type Store interface {
	// Apply runs fn inside one transaction. fn must use the ctx it is given.
	// The returned slot is the commit slot.
	Apply(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (uint64, error)
	Account(ctx context.Context, addr sol.PublicKey) (*Account, error)
	// Balance is zero for addresses with no account.
	Balance(ctx context.Context, addr sol.PublicKey) (uint64, error)
	Airdrop(ctx context.Context, addr sol.PublicKey, lamports uint64) (uint64, error)
	Slot(ctx context.Context) (uint64, error)
	Ping(ctx context.Context) error
}

// Signature derives a receipt identifier for a committed transaction.
func Signature(slot uint64, payer sol.PublicKey, message []byte) sol.Signature {
	h := sha512.New()
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], slot)
	h.Write(b[:])
	h.Write(payer[:])
	h.Write(message)
	var sig sol.Signature
	copy(sig[:], h.Sum(nil))
	return sig
}

// credit adds lamports to addr inside tx, creating a system account if needed.
func credit(ctx context.Context, tx Tx, addr sol.PublicKey, lamports uint64) error {
	acct, err := tx.Account(ctx, addr)
	switch {
	case errors.Is(err, ErrAccountNotFound):
		acct = &Account{Address: addr, Owner: sol.SystemProgramID}
	case err != nil:
		return err
	}
	if acct.Lamports > math.MaxUint64-lamports {
		return fmt.Errorf("%w: %s holds %d, credit %d", ErrBalanceOverflow, addr, acct.Lamports, lamports)
	}
	acct.Lamports += lamports
	tx.Put(*acct)
	return nil
}
