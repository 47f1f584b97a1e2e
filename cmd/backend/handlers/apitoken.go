package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/flux-qa/flux-backend/apitoken"
	"github.com/flux-qa/flux-backend/logger"
)

// APITokenHandler serves the token self-service endpoints. Every
// operation is scoped to the authenticated user.
type APITokenHandler struct {
	tokenStore apitoken.Store
	logger     logger.Logger
}

// NewAPITokenHandler creates a new API token handler.
func NewAPITokenHandler(tokenStore apitoken.Store, log logger.Logger) *APITokenHandler {
	return &APITokenHandler{tokenStore: tokenStore, logger: log}
}

// CreateTokenRequest represents a token creation request.
type CreateTokenRequest struct {
	Name           string `json:"name"`
	Scope          string `json:"scope"`
	ExpiresInHours int    `json:"expires_in_hours"`
}

// CreateTokenResponse carries the raw token. It is shown exactly once;
// afterwards only the digest exists server-side.
type CreateTokenResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	CreatedAt string `json:"created_at"`
}

// TokenListItem is a token in list responses, without the secret.
type TokenListItem struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Scope     string `json:"scope"`
	ExpiresAt string `json:"expires_at"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// TokenListResponse is the response for listing tokens.
type TokenListResponse struct {
	Tokens []TokenListItem `json:"tokens"`
	Total  int             `json:"total"`
}

func toTokenListItem(t *apitoken.APIToken) TokenListItem {
	return TokenListItem{
		ID:        t.ID.String(),
		Name:      t.Name,
		Scope:     t.Scope,
		ExpiresAt: t.ExpiresAt.Format(time.RFC3339),
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
}

// Create mints a new token for the authenticated user.
func (h *APITokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req CreateTokenRequest
	if err := parseJSON(r, &req, h.logger); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "token name is required")
		return
	}
	if req.Scope == "" {
		req.Scope = apitoken.ScopeReadOnly
	}
	if !apitoken.ValidScope(req.Scope) {
		respondError(w, http.StatusBadRequest, "invalid scope: must be read_only or read_write")
		return
	}

	var requested time.Duration
	if req.ExpiresInHours > 0 {
		requested = time.Duration(req.ExpiresInHours) * time.Hour
	}
	lifetime, err := apitoken.ValidateExpiry(requested)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rawToken, hash, err := apitoken.GenerateToken()
	if err != nil {
		h.logger.Error(r.Context(), "token generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}

	token := &apitoken.APIToken{
		UserID:    userID,
		Name:      req.Name,
		TokenHash: hash,
		Scope:     req.Scope,
		ExpiresAt: time.Now().Add(lifetime),
		IsActive:  true,
	}

	if err := h.tokenStore.Create(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, apitoken.ErrMaxTokensReached):
			respondError(w, http.StatusConflict, "maximum number of active tokens reached (limit: 5)")
		case errors.Is(err, apitoken.ErrInvalidTokenName), errors.Is(err, apitoken.ErrInvalidScope):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error(r.Context(), "token create failed", map[string]interface{}{
				"error": err.Error(),
			})
			respondError(w, http.StatusInternalServerError, "failed to create token")
		}
		return
	}

	respondJSON(w, http.StatusCreated, CreateTokenResponse{
		ID:        token.ID.String(),
		Name:      token.Name,
		Scope:     token.Scope,
		Token:     rawToken,
		ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
		CreatedAt: token.CreatedAt.Format(time.RFC3339),
	})
}

// List returns the authenticated user's live tokens.
func (h *APITokenHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	tokens, err := h.tokenStore.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error(r.Context(), "token list failed", map[string]interface{}{
			"error": err.Error(),
		})
		respondError(w, http.StatusInternalServerError, "failed to list tokens")
		return
	}

	items := make([]TokenListItem, len(tokens))
	for i, t := range tokens {
		items[i] = toTokenListItem(t)
	}

	respondJSON(w, http.StatusOK, TokenListResponse{Tokens: items, Total: len(items)})
}

// Revoke deactivates one of the caller's own tokens. Revoking someone
// else's token is a 403, not a 404, since GetByID confirmed it exists.
func (h *APITokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "user not authenticated")
		return
	}

	tokenID, ok := parseUUIDOrRespond(w, r, "token_id", "token")
	if !ok {
		return
	}

	token, err := h.tokenStore.GetByID(r.Context(), tokenID)
	if err != nil {
		if errors.Is(err, apitoken.ErrTokenNotFound) {
			respondError(w, http.StatusNotFound, "token not found")
			return
		}
		h.logger.Error(r.Context(), "token ownership check failed", map[string]interface{}{
			"error":    err.Error(),
			"token_id": tokenID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to verify token ownership")
		return
	}

	if token.UserID != userID {
		h.logger.Warn(r.Context(), "unauthorized token revoke attempt", map[string]interface{}{
			"user_id":  userID.String(),
			"token_id": tokenID.String(),
			"owner_id": token.UserID.String(),
		})
		respondError(w, http.StatusForbidden, "you don't have access to this token")
		return
	}

	if err := h.tokenStore.Revoke(r.Context(), tokenID); err != nil {
		if errors.Is(err, apitoken.ErrTokenNotFound) {
			respondError(w, http.StatusNotFound, "token not found")
			return
		}
		h.logger.Error(r.Context(), "token revoke failed", map[string]interface{}{
			"error":    err.Error(),
			"token_id": tokenID.String(),
		})
		respondError(w, http.StatusInternalServerError, "failed to revoke token")
		return
	}

	respondSuccess(w, "token revoked successfully")
}
