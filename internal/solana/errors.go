package solana

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/solyield/internal/program"
)

// System program error codes surfaced when init's CreateAccount fails.
const (
	systemErrAccountAlreadyInUse        = 0
	systemErrResultWithNegativeLamports = 1
	anchorErrConstraintSeeds            = 2006
)

var (
	hexCodeRe    = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
	customCodeRe = regexp.MustCompile(`Custom:(\d+)`)
)

// classify maps an RPC error message and its data (simulation logs or a
// transaction status error) to a program error, or nil when unknown.
func classify(message string, data interface{}) error {
	text := message
	if data != nil {
		text += " " + fmt.Sprintf("%v", data)
	}
	switch {
	case containsFold(text, "already in use"):
		return program.ErrAlreadyInitialized
	case containsFold(text, "insufficient lamports"),
		containsFold(text, "InsufficientFundsForRent"),
		containsFold(text, "insufficient funds"),
		containsFold(text, "no record of a prior credit"):
		return program.ErrInsufficientResources
	case strings.Contains(text, "ConstraintSeeds"):
		return program.ErrAddressDerivationMismatch
	}
	if code, ok := errorCode(text); ok {
		switch code {
		case systemErrAccountAlreadyInUse:
			return program.ErrAlreadyInitialized
		case systemErrResultWithNegativeLamports:
			return program.ErrInsufficientResources
		case anchorErrConstraintSeeds:
			return program.ErrAddressDerivationMismatch
		}
		return program.ErrorFromCode(code)
	}
	return nil
}

func errorCode(text string) (uint32, bool) {
	if m := hexCodeRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.ParseUint(m[1], 16, 32); err == nil {
			return uint32(n), true
		}
	}
	if m := customCodeRe.FindStringSubmatch(text); m != nil {
		if n, err := strconv.ParseUint(m[1], 10, 32); err == nil {
			return uint32(n), true
		}
	}
	return 0, false
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
