package auth

import (
	"context"

	sol "github.com/gagliardetto/solana-go"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	hashPrefixKey
)

// WithIdentity returns a copy of ctx carrying the resolved caller and the
// hash prefix of the key that attested it.
func WithIdentity(ctx context.Context, identity sol.PublicKey, hashPrefix string) context.Context {
	ctx = context.WithValue(ctx, identityKey, identity)
	return context.WithValue(ctx, hashPrefixKey, hashPrefix)
}

// IdentityFromContext returns the caller set by WithIdentity.
func IdentityFromContext(ctx context.Context) (sol.PublicKey, bool) {
	pk, ok := ctx.Value(identityKey).(sol.PublicKey)
	return pk, ok
}

func HashPrefixFromContext(ctx context.Context) string {
	s, _ := ctx.Value(hashPrefixKey).(string)
	return s
}
