package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/solyield/internal/bootstrap"
	"github.com/example/solyield/internal/ledger"
	"github.com/example/solyield/internal/program"
	"github.com/example/solyield/internal/types"
	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type harness struct {
	ledger *ledger.Memory
	dials  int
}

func (h *harness) dial(t *testing.T) Dialer {
	return func(_ *RootOptions, programID sol.PublicKey, _ *sol.PrivateKey) (Program, error) {
		h.dials++
		return bootstrap.New(programID, h.ledger, zaptest.NewLogger(t))
	}
}

func run(t *testing.T, h *harness, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand(&RootOptions{Dial: h.dial(t)})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeKeypair(t *testing.T) (string, sol.PublicKey) {
	t.Helper()
	w := sol.NewWallet()
	raw := make([]int, len(w.PrivateKey))
	for i, b := range w.PrivateKey {
		raw[i] = int(b)
	}
	buf, err := json.Marshal(raw)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, buf, 0o600))
	return path, w.PublicKey()
}

func TestAddress(t *testing.T) {
	addr, bump, err := program.DeriveGlobalStateAddress(program.ProgramID)
	require.NoError(t, err)

	out, err := run(t, &harness{}, "address")
	require.NoError(t, err)
	assert.Contains(t, out, addr.String())

	out, err = run(t, &harness{}, "address", "--format", "json")
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, addr.String(), got["address"])
	assert.Equal(t, float64(bump), got["bump"])
}

func TestInvalidFlags(t *testing.T) {
	_, err := run(t, &harness{}, "address", "--format", "yaml")
	require.Error(t, err)
	_, err = run(t, &harness{}, "address", "--program-id", "bad!")
	require.Error(t, err)
}

func TestInitializeThenState(t *testing.T) {
	h := &harness{ledger: ledger.NewMemory()}
	path, payer := writeKeypair(t)
	_, err := h.ledger.Airdrop(context.Background(), payer, 1_000_000_000)
	require.NoError(t, err)

	out, err := run(t, h, "initialize", "--keypair", path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Your transaction signature "), out)

	out, err = run(t, h, "state", "--format", "json")
	require.NoError(t, err)
	var st types.StateResponse
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.True(t, st.IsInitialized)
	assert.Equal(t, payer.String(), st.Authority)

	out, err = run(t, h, "state")
	require.NoError(t, err)
	assert.Contains(t, out, "Authority:       "+payer.String())

	_, err = run(t, h, "initialize", "--keypair", path)
	require.ErrorIs(t, err, program.ErrAlreadyInitialized)
}

func TestInitializeErrors(t *testing.T) {
	h := &harness{ledger: ledger.NewMemory()}
	path, _ := writeKeypair(t)

	_, err := run(t, h, "initialize", "--keypair", path)
	require.ErrorIs(t, err, program.ErrInsufficientResources)

	_, err = run(t, h, "initialize", "--keypair", path, "--state-address", sol.NewWallet().PublicKey().String())
	require.ErrorIs(t, err, program.ErrAddressDerivationMismatch)

	before := h.dials
	_, err = run(t, h, "initialize", "--keypair", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	require.Equal(t, before, h.dials)
}

func TestStateNotInitialized(t *testing.T) {
	_, err := run(t, &harness{ledger: ledger.NewMemory()}, "state")
	require.ErrorIs(t, err, program.ErrNotInitialized)
}

func TestErrorsLeftToCaller(t *testing.T) {
	out, err := run(t, &harness{ledger: ledger.NewMemory()}, "state")
	require.ErrorIs(t, err, program.ErrNotInitialized)
	assert.NotContains(t, out, "Error:")
	assert.NotContains(t, out, "Usage:")
}
