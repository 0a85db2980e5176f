package types

import (
	"testing"
	"time"

	"github.com/example/solyield/internal/program"
	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestNowRFC3339_Format(t *testing.T) {
	_, err := time.Parse(time.RFC3339, NowRFC3339())
	require.NoError(t, err)
}

func TestLamportsToSol(t *testing.T) {
	require.Equal(t, 2.0, LamportsToSol(2_000_000_000))
}

func TestNewBalanceEntry(t *testing.T) {
	be := NewBalanceEntry("w", 1_500_000_000, "ledger", time.Now())
	require.Equal(t, "w", be.Wallet)
	require.Equal(t, 1.5, be.Sol)
	require.Equal(t, "ledger", be.Source)
}

func TestNewStateResponse(t *testing.T) {
	addr := sol.NewWallet().PublicKey()
	auth := sol.NewWallet().PublicKey()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	r := NewStateResponse(addr, program.GlobalState{IsInitialized: true, Authority: auth, CreatedAtSlot: 9, Bump: 250}, "cache", ts)
	require.Equal(t, addr.String(), r.Address)
	require.Equal(t, auth.String(), r.Authority)
	require.True(t, r.IsInitialized)
	require.Equal(t, uint64(9), r.CreatedAtSlot)
	require.Equal(t, uint8(250), r.Bump)
	require.Equal(t, "2026-01-02T02:04:05Z", r.FetchedAt)
}

func TestNewInitializeResponse(t *testing.T) {
	auth := sol.NewWallet().PublicKey()
	addr := sol.NewWallet().PublicKey()
	sig := sol.Signature{1, 2, 3}
	r := NewInitializeResponse(program.Receipt{Signature: sig, Slot: 4}, auth, addr)
	require.Equal(t, sig.String(), r.Signature)
	require.Equal(t, uint64(4), r.Slot)
	require.Equal(t, auth.String(), r.Authority)
	require.Equal(t, addr.String(), r.StateAddress)
}
