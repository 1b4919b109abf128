package httpx

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/elitestore/go-storefront/internal/apperr"
	"github.com/elitestore/go-storefront/internal/identity"
	"github.com/go-chi/chi/v5"
)

type UserStore interface {
	Upsert(ctx context.Context, u identity.User) (identity.User, error)
	Get(ctx context.Context, id string) (identity.User, error)
}

type SessionIssuer interface {
	Issue(ctx context.Context, p identity.Principal) (string, error)
}

// AuthHandler bridges the external identity provider. The provider calls
// /auth/callback with the authenticated user and a shared secret; this
// side upserts the user row and hands back a bearer token.
type AuthHandler struct {
	Users        UserStore
	Sessions     SessionIssuer
	SharedSecret string
}

func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/callback", h.callback)
}

func (h *AuthHandler) RegisterAuthed(r chi.Router) {
	r.Get("/auth/user", h.currentUser)
}

type callbackReq struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

type callbackResp struct {
	Token string        `json:"token"`
	User  identity.User `json:"user"`
}

func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Idp-Secret")
	if h.SharedSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(h.SharedSecret)) != 1 {
		writeError(w, apperr.Unauthorized("invalid identity provider secret"))
		return
	}

	var req callbackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid json"))
		return
	}
	if req.ID == "" || req.Email == "" {
		writeError(w, apperr.Validation("id and email are required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.Upsert(ctx, identity.User{
		ID: req.ID, Email: req.Email,
		FirstName: req.FirstName, LastName: req.LastName,
		Role: req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := h.Sessions.Issue(ctx, identity.Principal{
		UserID: u.ID, Email: u.Email, Role: u.Role,
	})
	if err != nil {
		writeError(w, apperr.Unavailable("session store", err))
		return
	}
	writeJSON(w, http.StatusOK, callbackResp{Token: token, User: u})
}

func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("no session"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Users.Get(ctx, p.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
