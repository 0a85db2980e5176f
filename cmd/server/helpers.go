package main

import (
	"fmt"
	"strings"

	"github.com/example/solyield/internal/program"
	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// sanitizePort returns a sensible default when empty.
func sanitizePort(p string) string {
	if p == "" {
		return "8080"
	}
	return p
}

// chooseCommitment returns the provided commitment, or the default value when empty.
func chooseCommitment(s string) string {
	if s == "" {
		return "confirmed"
	}
	return s
}

// parseProgramID falls back to the built-in program id when s is empty.
func parseProgramID(s string) (sol.PublicKey, error) {
	if s == "" {
		return program.ProgramID, nil
	}
	pk, err := sol.PublicKeyFromBase58(s)
	if err != nil {
		return sol.PublicKey{}, fmt.Errorf("PROGRAM_ID: %w", err)
	}
	return pk, nil
}

// loadPayer reads a solana-keygen JSON keypair. An empty path means no payer.
func loadPayer(path string) (*sol.PrivateKey, error) {
	if path == "" {
		return nil, nil
	}
	key, err := sol.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("PAYER_KEYPAIR: %w", err)
	}
	return &key, nil
}

func newLogger(level string) (*zap.Logger, error) {
	level = strings.ToLower(level)
	cfg := zap.NewProductionConfig()
	if level == "debug" {
		cfg = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}
