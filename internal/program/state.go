package program

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"
)

// GlobalStateDiscriminator prefixes every encoded GlobalState account.
var GlobalStateDiscriminator = sighash("account", "GlobalState")

// GlobalStateSize is the encoded size including the discriminator.
const GlobalStateSize = 8 + 1 + 32 + 8 + 1

// GlobalState is the singleton record written by initialize.
type GlobalState struct {
	IsInitialized bool
	Authority     sol.PublicKey
	CreatedAtSlot uint64
	Bump          uint8
}

func (s GlobalState) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(GlobalStateDiscriminator[:], false); err != nil {
		return err
	}
	if err := enc.WriteBool(s.IsInitialized); err != nil {
		return err
	}
	if err := enc.WriteBytes(s.Authority[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint64(s.CreatedAtSlot, bin.LE); err != nil {
		return err
	}
	return enc.WriteUint8(s.Bump)
}

func (s *GlobalState) UnmarshalWithDecoder(dec *bin.Decoder) error {
	if dec.Remaining() < GlobalStateSize {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrInvalidAccountData, GlobalStateSize, dec.Remaining())
	}
	disc, err := dec.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, GlobalStateDiscriminator[:]) {
		return fmt.Errorf("%w: discriminator %x", ErrInvalidAccountData, disc)
	}
	flag, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	switch flag {
	case 0:
		s.IsInitialized = false
	case 1:
		s.IsInitialized = true
	default:
		return fmt.Errorf("%w: is_initialized byte %d", ErrInvalidAccountData, flag)
	}
	auth, err := dec.ReadNBytes(sol.PublicKeyLength)
	if err != nil {
		return err
	}
	s.Authority = sol.PublicKeyFromBytes(auth)
	if s.CreatedAtSlot, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	s.Bump, err = dec.ReadUint8()
	return err
}

// Encode returns the account data for s.
func (s GlobalState) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeGlobalState parses account data written by Encode or by the program.
func DecodeGlobalState(data []byte) (*GlobalState, error) {
	var s GlobalState
	if err := bin.NewBorshDecoder(data).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
