package ledger

import (
	"context"
	"errors"
	"sync"

	sol "github.com/gagliardetto/solana-go"
)

// Memory is an in-process Store. Apply holds the write lock for its whole
// duration; readers take the read lock.
type Memory struct {
	mu       sync.RWMutex
	accounts map[sol.PublicKey]Account
	slot     uint64
}

func NewMemory() *Memory {
	return &Memory{accounts: make(map[sol.PublicKey]Account)}
}

type memTx struct {
	m      *Memory
	slot   uint64
	staged map[sol.PublicKey]Account
}

func (tx *memTx) Slot() uint64 { return tx.slot }

func (tx *memTx) Account(_ context.Context, addr sol.PublicKey) (*Account, error) {
	if a, ok := tx.staged[addr]; ok {
		c := a.clone()
		return &c, nil
	}
	if a, ok := tx.m.accounts[addr]; ok {
		c := a.clone()
		return &c, nil
	}
	return nil, ErrAccountNotFound
}

func (tx *memTx) Put(acct Account) { tx.staged[acct.Address] = acct.clone() }

func (m *Memory) Apply(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	tx := &memTx{m: m, slot: m.slot + 1, staged: make(map[sol.PublicKey]Account)}
	if err := fn(ctx, tx); err != nil {
		return 0, err
	}
	for addr, a := range tx.staged {
		m.accounts[addr] = a
	}
	m.slot = tx.slot
	return tx.slot, nil
}

func (m *Memory) Account(_ context.Context, addr sol.PublicKey) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[addr]
	if !ok {
		return nil, ErrAccountNotFound
	}
	c := a.clone()
	return &c, nil
}

func (m *Memory) Balance(ctx context.Context, addr sol.PublicKey) (uint64, error) {
	a, err := m.Account(ctx, addr)
	if errors.Is(err, ErrAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return a.Lamports, nil
}

func (m *Memory) Airdrop(ctx context.Context, addr sol.PublicKey, lamports uint64) (uint64, error) {
	return m.Apply(ctx, func(ctx context.Context, tx Tx) error {
		return credit(ctx, tx, addr, lamports)
	})
}

func (m *Memory) Slot(context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.slot, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
