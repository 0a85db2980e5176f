// Package program holds the client-side binding of the solana_yield program:
// its id, the global state address derivation, the account layout and the
// initialize instruction.
package program

import (
	"crypto/sha256"
	"fmt"

	sol "github.com/gagliardetto/solana-go"
)

// ProgramID is the address the solana_yield program is deployed at.
var ProgramID = sol.MustPublicKeyFromBase58("TK9uHFJGK2ULY5M7t16EewhaB26KHWs5zmQgBuHyKpS")

// GlobalStateSeed is the only seed of the global state PDA.
var GlobalStateSeed = []byte("global_state")

// DeriveGlobalStateAddress returns the global state address and its bump.
// The result depends on programID alone.
func DeriveGlobalStateAddress(programID sol.PublicKey) (sol.PublicKey, uint8, error) {
	return sol.FindProgramAddress([][]byte{GlobalStateSeed}, programID)
}

// sighash computes an 8 byte Anchor discriminator for "<namespace>:<name>".
func sighash(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}

// Receipt acknowledges that a transaction was included in the ledger.
type Receipt struct {
	Signature sol.Signature
	Slot      uint64
}

// InitializeRequest carries the inputs of initialize. StateAddress is
// optional; when set it must equal the derived address.
type InitializeRequest struct {
	Caller       sol.PublicKey
	StateAddress *sol.PublicKey
}

// CheckStateAddress rejects a supplied address that differs from derived.
func CheckStateAddress(derived sol.PublicKey, supplied *sol.PublicKey) error {
	if supplied == nil || supplied.Equals(derived) {
		return nil
	}
	return fmt.Errorf("%w: got %s, derived %s", ErrAddressDerivationMismatch, supplied, derived)
}
