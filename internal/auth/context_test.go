package auth

import (
	"context"
	"testing"

	sol "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
)

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	require.False(t, ok)
	require.Empty(t, HashPrefixFromContext(context.Background()))

	pk := sol.NewWallet().PublicKey()
	ctx := WithIdentity(context.Background(), pk, "abcd1234")
	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, pk, got)
	require.Equal(t, "abcd1234", HashPrefixFromContext(ctx))
}
