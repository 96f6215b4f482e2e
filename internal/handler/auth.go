package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/trashwatch/internal/auth"
	"github.com/sakif/trashwatch/internal/model"
	"github.com/sakif/trashwatch/internal/service"
)

// AuthHandler serves registration, login, logout and the current actor.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an actor and sign it in
//   - HandleLogin    → check credentials and sign in
//   - HandleLogout   → sign the actor out of the session, drop the cookie
//   - HandleMe       → return who is signed in
type AuthHandler struct {
	auth   *service.AuthService
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(authSvc *service.AuthService, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: authSvc, tokens: tokens, logger: logger}
}

// registerRequest carries the role as a plain string so that an empty role
// means "not given" just like an omitted one; the validator checks the tag.
type registerRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=User Admin"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// authResponse is returned by register and login. Native clients keep the
// token and send it as a Bearer header; browsers rely on the cookie.
type authResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// HandleRegister creates an actor and signs it in.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"username": "alice", "password": "...", "role": "User"}
// Role is optional; omitted or "" means User.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	role := model.RoleUser
	if req.Role != "" {
		role = model.Role(req.Role)
	}

	sessionID, _ := auth.SessionIDFromContext(r.Context())
	result, err := h.auth.Register(r.Context(), sessionID, req.Username, req.Password, role)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeJSON(w, http.StatusCreated, authResponse{User: result.User, Token: result.Token})
}

// HandleLogin checks credentials and signs the actor in.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"username": "alice", "password": "..."}
//
// If the request already carries a valid token, the actor is placed into that
// session rather than a new one.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	sessionID, _ := auth.SessionIDFromContext(r.Context())
	result, err := h.auth.Login(r.Context(), sessionID, req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeJSON(w, http.StatusOK, authResponse{User: result.User, Token: result.Token})
}

// HandleLogout signs the actor out.
//
// HTTP: POST /api/auth/logout
//
// The session stays open, so a token kept by the client keeps naming it; the
// next login through that token reuses it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := auth.SessionIDFromContext(r.Context()); ok {
		h.auth.Logout(sessionID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in actor.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	_, actor, err := currentActor(r, h.auth)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

// setTokenCookie stores the token in an HttpOnly cookie that lives as long as
// the token does.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		// Secure: true, // enable behind HTTPS
	})
}
