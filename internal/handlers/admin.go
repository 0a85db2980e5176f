package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/example/solyield/internal/auth"
	"github.com/example/solyield/internal/types"
	"github.com/example/solyield/pkg/jsonutil"
	sol "github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// AdminHandler binds API keys to caller identities.
type AdminHandler struct {
	Store      auth.IdentityBinder
	AdminToken string
	Log        *zap.Logger
}

func NewAdminHandler(store auth.IdentityBinder, adminToken string, log *zap.Logger) *AdminHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{Store: store, AdminToken: adminToken, Log: log}
}

// ServeHTTP handles POST /admin/identities. A random 32-byte hex key is
// generated when the request omits one.
func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonutil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !adminAuthorized(r, h.AdminToken) {
		jsonutil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req types.BindIdentityRequest
	if err := jsonutil.Decode(r, &req, false); err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "bad request")
		return
	}
	identity, err := sol.PublicKeyFromBase58(req.Identity)
	if err != nil {
		jsonutil.Error(w, http.StatusBadRequest, "invalid identity")
		return
	}
	key := req.Key
	if key == "" {
		var b [32]byte
		if _, err := rand.Read(b[:]); err != nil {
			jsonutil.Error(w, http.StatusInternalServerError, "internal error")
			return
		}
		key = hex.EncodeToString(b[:])
	}
	if err := h.Store.Bind(r.Context(), key, identity, true); err != nil {
		h.Log.Error("bind failed", zap.String("event", "admin_bind"), zap.Error(err))
		jsonutil.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.Log.Info("bound", zap.String("event", "admin_bind"),
		zap.String("identity", identity.String()), zap.String("key_hash_prefix", auth.HashPrefix(key)))
	jsonutil.JSON(w, http.StatusOK, types.BindIdentityResponse{
		Key:      key,
		Identity: identity.String(),
		Active:   true,
		Created:  types.NowRFC3339(),
	})
}
