package program

import (
	sol "github.com/gagliardetto/solana-go"
)

// InitializeDiscriminator is the instruction data of initialize; it takes no arguments.
var InitializeDiscriminator = sighash("global", "initialize")

// NewInitializeInstruction builds initialize with accounts in program order:
// global_state (writable), authority (writable signer, pays rent), system program.
func NewInitializeInstruction(programID, state, authority sol.PublicKey) sol.Instruction {
	data := make([]byte, len(InitializeDiscriminator))
	copy(data, InitializeDiscriminator[:])
	return sol.NewInstruction(
		programID,
		sol.AccountMetaSlice{
			sol.Meta(state).WRITE(),
			sol.Meta(authority).WRITE().SIGNER(),
			sol.Meta(sol.SystemProgramID),
		},
		data,
	)
}
