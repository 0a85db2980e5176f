package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/example/solyield/internal/ledger"
	"github.com/example/solyield/internal/program"
	"github.com/example/solyield/internal/types"
	"github.com/example/solyield/pkg/jsonutil"
)

var statusTable = []struct {
	err  error
	code int
}{
	{program.ErrAlreadyInitialized, http.StatusConflict},
	{program.ErrInsufficientResources, http.StatusPaymentRequired},
	{program.ErrAddressDerivationMismatch, http.StatusUnprocessableEntity},
	{program.ErrSignerUnavailable, http.StatusForbidden},
	{program.ErrUnauthorized, http.StatusForbidden},
	{program.ErrNotInitialized, http.StatusNotFound},
	{program.ErrInvalidAccountData, http.StatusBadGateway},
	{ledger.ErrBalanceOverflow, http.StatusBadRequest},
	{context.DeadlineExceeded, http.StatusGatewayTimeout},
}

// StatusFor maps an error from the ledger or program to an HTTP status.
func StatusFor(err error) int {
	code, _ := lookup(err)
	return code
}

// lookup returns the status for err and the sentinel it matched. Wrapped
// detail, such as node error text, stays out of responses.
func lookup(err error) (int, error) {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.code, e.err
		}
	}
	return http.StatusInternalServerError, nil
}

func writeError(w http.ResponseWriter, err error) {
	code, sentinel := lookup(err)
	resp := types.ErrorResponse{Error: "internal error"}
	if sentinel != nil {
		resp.Error = sentinel.Error()
	}
	if c, ok := program.ErrorCode(err); ok {
		resp.Code = c
	}
	jsonutil.JSON(w, code, resp)
}

func adminAuthorized(r *http.Request, token string) bool {
	if token == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
