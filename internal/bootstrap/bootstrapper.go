// Package bootstrap creates the program's global state record, at most once
// per deployment.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/solyield/internal/ledger"
	"github.com/example/solyield/internal/program"
	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Bootstrapper runs initialize against a ledger. The state address is derived
// once from the program id and never taken from callers.
type Bootstrapper struct {
	programID sol.PublicKey
	address   sol.PublicKey
	bump      uint8
	ledger    ledger.Store
	log       *zap.Logger
}

func New(programID sol.PublicKey, store ledger.Store, log *zap.Logger) (*Bootstrapper, error) {
	addr, bump, err := program.DeriveGlobalStateAddress(programID)
	if err != nil {
		return nil, fmt.Errorf("derive global state address: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Bootstrapper{
		programID: programID,
		address:   addr,
		bump:      bump,
		ledger:    store,
		log:       log.Named("bootstrap"),
	}, nil
}

// Address returns the derived global state address.
func (b *Bootstrapper) Address() sol.PublicKey { return b.address }

// Initialize creates the global state with req.Caller as authority. It fails
// with program.ErrAlreadyInitialized once any call has succeeded, and leaves
// the ledger untouched on every error.
func (b *Bootstrapper) Initialize(ctx context.Context, req program.InitializeRequest) (program.Receipt, error) {
	if err := program.CheckStateAddress(b.address, req.StateAddress); err != nil {
		return program.Receipt{}, err
	}
	// The state address is program-derived; nothing can sign or pay as it.
	if req.Caller.Equals(b.address) {
		return program.Receipt{}, fmt.Errorf("%w: %s is the state address", program.ErrSignerUnavailable, req.Caller)
	}

	slot, err := b.ledger.Apply(ctx, func(ctx context.Context, tx ledger.Tx) error {
		existing, err := lookup(ctx, tx, b.address)
		if err != nil {
			return err
		}
		if existing.HoldsRecord() {
			return program.ErrAlreadyInitialized
		}
		var held uint64
		if existing != nil {
			held = existing.Lamports
		}

		payer, err := lookup(ctx, tx, req.Caller)
		if err != nil {
			return err
		}
		cost := program.InitializeCost(held)
		if payer == nil || payer.Lamports < cost {
			var have uint64
			if payer != nil {
				have = payer.Lamports
			}
			return fmt.Errorf("%w: need %d lamports, have %d", program.ErrInsufficientResources, cost, have)
		}

		state := program.GlobalState{
			IsInitialized: true,
			Authority:     req.Caller,
			CreatedAtSlot: tx.Slot(),
			Bump:          b.bump,
		}
		data, err := state.Encode()
		if err != nil {
			return err
		}
		payer.Lamports -= cost
		tx.Put(*payer)
		tx.Put(ledger.Account{
			Address:  b.address,
			Owner:    b.programID,
			Lamports: max(held, program.RentExemptMinimum(len(data))),
			Data:     data,
		})
		return nil
	})
	if err != nil {
		b.log.Info("initialize rejected",
			zap.String("event", "initialize"),
			zap.Stringer("caller", req.Caller),
			zap.Error(err))
		return program.Receipt{}, err
	}

	msg := append(program.InitializeDiscriminator[:], b.address[:]...)
	rcpt := program.Receipt{Signature: ledger.Signature(slot, req.Caller, msg), Slot: slot}
	b.log.Info("initialized",
		zap.String("event", "initialize"),
		zap.Stringer("caller", req.Caller),
		zap.Uint64("slot", slot),
		zap.Stringer("signature", rcpt.Signature))
	return rcpt, nil
}

// State reads the global state record.
func (b *Bootstrapper) State(ctx context.Context) (*program.GlobalState, error) {
	acct, err := b.ledger.Account(ctx, b.address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, program.ErrNotInitialized
	}
	if err != nil {
		return nil, err
	}
	if !acct.HoldsRecord() {
		return nil, program.ErrNotInitialized
	}
	if !acct.Owner.Equals(b.programID) {
		return nil, fmt.Errorf("%w: owner %s", program.ErrInvalidAccountData, acct.Owner)
	}
	return program.DecodeGlobalState(acct.Data)
}

// Authorize succeeds only for the authority recorded at initialization.
// Privileged operations added on top of the global state gate on it; none
// exist yet beyond initialize itself.
func (b *Bootstrapper) Authorize(ctx context.Context, signer sol.PublicKey) error {
	st, err := b.State(ctx)
	if err != nil {
		return err
	}
	if !st.Authority.Equals(signer) {
		return program.ErrUnauthorized
	}
	return nil
}

func lookup(ctx context.Context, tx ledger.Tx, addr sol.PublicKey) (*ledger.Account, error) {
	acct, err := tx.Account(ctx, addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, nil
	}
	return acct, err
}
