package program

import (
	"encoding/binary"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestGlobalState_Layout(t *testing.T) {
	auth := sol.NewWallet().PublicKey()
	s := GlobalState{IsInitialized: true, Authority: auth, CreatedAtSlot: 0x0102030405060708, Bump: 254}
	data, err := s.Encode()
	require.NoError(t, err)
	require.Len(t, data, GlobalStateSize)

	require.Equal(t, GlobalStateDiscriminator[:], data[0:8])
	require.Equal(t, byte(1), data[8])
	require.Equal(t, auth[:], data[9:41])
	require.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(data[41:49]))
	require.Equal(t, byte(254), data[49])

	back, err := DecodeGlobalState(data)
	require.NoError(t, err)
	require.Equal(t, s, *back)
}

func TestDecodeGlobalState_Rejects(t *testing.T) {
	good, err := GlobalState{IsInitialized: true, Authority: sol.NewWallet().PublicKey()}.Encode()
	require.NoError(t, err)

	_, err = DecodeGlobalState(good[:20])
	require.ErrorIs(t, err, ErrInvalidAccountData)

	badDisc := append([]byte(nil), good...)
	badDisc[0] ^= 0xff
	_, err = DecodeGlobalState(badDisc)
	require.ErrorIs(t, err, ErrInvalidAccountData)

	badFlag := append([]byte(nil), good...)
	badFlag[8] = 2
	_, err = DecodeGlobalState(badFlag)
	require.ErrorIs(t, err, ErrInvalidAccountData)
}

func TestNewInitializeInstruction_Accounts(t *testing.T) {
	state, _, err := DeriveGlobalStateAddress(ProgramID)
	require.NoError(t, err)
	auth := sol.NewWallet().PublicKey()

	ix := NewInitializeInstruction(ProgramID, state, auth)
	require.True(t, ix.ProgramID().Equals(ProgramID))

	accts := ix.Accounts()
	require.Len(t, accts, 3)
	require.True(t, accts[0].PublicKey.Equals(state))
	require.True(t, accts[0].IsWritable)
	require.False(t, accts[0].IsSigner)
	require.True(t, accts[1].PublicKey.Equals(auth))
	require.True(t, accts[1].IsWritable)
	require.True(t, accts[1].IsSigner)
	require.True(t, accts[2].PublicKey.Equals(sol.SystemProgramID))
	require.False(t, accts[2].IsWritable)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Equal(t, InitializeDiscriminator[:], data)
}
