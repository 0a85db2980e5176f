package types

import (
	"time"

	"github.com/example/solyield/internal/program"
	sol "github.com/gagliardetto/solana-go"
)

// InitializeRequest is the optional body of POST /api/initialize.
type InitializeRequest struct {
	StateAddress string `json:"state_address,omitempty"`
}

// InitializeResponse carries the receipt of a successful initialize.
type InitializeResponse struct {
	Signature    string `json:"signature"`
	Slot         uint64 `json:"slot"`
	Authority    string `json:"authority"`
	StateAddress string `json:"state_address"`
}

// StateResponse is the JSON view of the global state record.
type StateResponse struct {
	Address       string `json:"address"`
	IsInitialized bool   `json:"is_initialized"`
	Authority     string `json:"authority"`
	CreatedAtSlot uint64 `json:"created_at_slot"`
	Bump          uint8  `json:"bump"`
	Source        string `json:"source"`     // "cache" or "ledger"
	FetchedAt     string `json:"fetched_at"` // RFC3339
}

// ErrorResponse is returned on every failed API call. Code is set for
// program errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  uint32 `json:"code,omitempty"`
}

// GetBalanceRequest represents the incoming payload for balance lookups.
type GetBalanceRequest struct {
	Wallets []string `json:"wallets"`
}

// BalanceEntry represents a single wallet balance response.
type BalanceEntry struct {
	Wallet    string  `json:"wallet"`
	Lamports  uint64  `json:"lamports"`
	Sol       float64 `json:"sol"`
	Source    string  `json:"source"`
	FetchedAt string  `json:"fetched_at"`
}

// ErrorEntry captures per-wallet errors that occurred while fetching.
type ErrorEntry struct {
	Wallet string `json:"wallet"`
	Error  string `json:"error"`
}

// GetBalanceResponse is the JSON response for the balance endpoint.
type GetBalanceResponse struct {
	Balances []BalanceEntry `json:"balances"`
	Errors   []ErrorEntry   `json:"errors"`
}

// BindIdentityRequest binds an API key to a caller identity. Key is
// generated when empty.
type BindIdentityRequest struct {
	Key      string `json:"key"`
	Identity string `json:"identity"`
}

type BindIdentityResponse struct {
	Key      string `json:"key"`
	Identity string `json:"identity"`
	Active   bool   `json:"active"`
	Created  string `json:"created_at"`
}

// AirdropRequest funds an identity on a local ledger.
type AirdropRequest struct {
	Identity string `json:"identity"`
	Lamports uint64 `json:"lamports"`
}

type AirdropResponse struct {
	Identity string `json:"identity"`
	Lamports uint64 `json:"lamports"`
	Balance  uint64 `json:"balance"`
	Slot     uint64 `json:"slot"`
}

func NowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

// LamportsToSol converts lamports to SOL as a float.
func LamportsToSol(l uint64) float64 { return float64(l) / 1_000_000_000 }

// NewBalanceEntry creates a BalanceEntry from raw lamports and timestamp.
func NewBalanceEntry(wallet string, lamports uint64, source string, ts time.Time) BalanceEntry {
	return BalanceEntry{
		Wallet:    wallet,
		Lamports:  lamports,
		Sol:       LamportsToSol(lamports),
		Source:    source,
		FetchedAt: ts.UTC().Format(time.RFC3339),
	}
}

// NewStateResponse renders st as read from addr.
func NewStateResponse(addr sol.PublicKey, st program.GlobalState, source string, ts time.Time) StateResponse {
	return StateResponse{
		Address:       addr.String(),
		IsInitialized: st.IsInitialized,
		Authority:     st.Authority.String(),
		CreatedAtSlot: st.CreatedAtSlot,
		Bump:          st.Bump,
		Source:        source,
		FetchedAt:     ts.UTC().Format(time.RFC3339),
	}
}

// NewInitializeResponse renders a receipt.
func NewInitializeResponse(r program.Receipt, authority, addr sol.PublicKey) InitializeResponse {
	return InitializeResponse{
		Signature:    r.Signature.String(),
		Slot:         r.Slot,
		Authority:    authority.String(),
		StateAddress: addr.String(),
	}
}
