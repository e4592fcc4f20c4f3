package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/chiremba/chiremba-api/pkg/utilities"
)

// Handler exposes token introspection for the web client and sibling services.
type Handler struct {
	tokens *TokenService
	logger *zap.SugaredLogger
}

func NewHandler(tokens *TokenService, logger *zap.SugaredLogger) *Handler {
	return &Handler{tokens: tokens, logger: logger}
}

type introspectRequest struct {
	Token string `json:"token"`
}

// Introspect follows the RFC 7662 response shape: `active` plus the registered
// claims of a valid session token. Invalid tokens are reported as inactive with 200.
// The token may be sent as form field `token` or JSON body {"token": "..."}.
func (h *Handler) Introspect(w http.ResponseWriter, r *http.Request) {
	var token string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req introspectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utilities.WriteMessage(w, http.StatusBadRequest, "invalid_request")
			return
		}
		token = req.Token
	} else {
		if err := r.ParseForm(); err != nil {
			utilities.WriteMessage(w, http.StatusBadRequest, "invalid_request")
			return
		}
		token = r.Form.Get("token")
	}
	if token == "" {
		utilities.WriteMessage(w, http.StatusBadRequest, "invalid_request")
		return
	}

	claims, err := h.tokens.Verify(token)
	if err != nil {
		h.logger.Debugw("introspect inactive token", "err", err)
		utilities.WriteJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}
	out := map[string]any{
		"active":     true,
		"sub":        claims.Subject,
		"email":      claims.Email,
		"role":       claims.Role,
		"iss":        claims.Issuer,
		"token_type": "access_token",
	}
	if claims.ExpiresAt != nil {
		out["exp"] = claims.ExpiresAt.Unix()
	}
	if claims.IssuedAt != nil {
		out["iat"] = claims.IssuedAt.Unix()
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}
