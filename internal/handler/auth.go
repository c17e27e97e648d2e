package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/flock/internal/auth"
	"github.com/dukerupert/flock/internal/middleware"
	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/store"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	// appPasswordUser names sessions opened with the shared staff password.
	appPasswordUser = "staff"
)

type AuthHandler struct {
	users       *store.UserStore
	tokens      *auth.Tokens
	appPassword string
	logger      *slog.Logger
}

func NewAuthHandler(us *store.UserStore, tokens *auth.Tokens, appPassword string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{users: us, tokens: tokens, appPassword: appPassword, logger: logger}
}

type authRequest struct {
	Action   string `json:"action"`
	Username string `json:"username"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Auth dispatches on the "action" field: setup, login or check.
func (h *AuthHandler) Auth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "setup":
		h.setup(w, r, req)
	case "login":
		h.login(w, r, req)
	case "check":
		h.check(w, r, req)
	default:
		writeError(w, r, h.logger, model.Invalid("action", "must be setup, login or check"))
	}
}

// setup creates the first admin. It is refused once any user exists.
func (h *AuthHandler) setup(w http.ResponseWriter, r *http.Request, req authRequest) {
	username, err := validateCredentials(req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	n, err := h.users.Count(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if n > 0 {
		writeError(w, r, h.logger, &model.ConflictError{Reason: "setup has already been completed"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	u, err := h.users.Create(r.Context(), username, string(hash), model.RoleAdmin)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("initial admin created", "user_id", u.ID, "username", u.Username)
	h.issue(w, r, http.StatusCreated, u.ID, u.Username, u.Role)
}

// login accepts either a username and password, or just the shared app
// password when one is configured.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, req authRequest) {
	if req.Password == "" {
		writeError(w, r, h.logger, model.Invalid("password", "is required"))
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" {
		if h.appPassword == "" || subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.appPassword)) != 1 {
			h.logger.Warn("app password login failed", "remote", middleware.RealIP(r))
			writeError(w, r, h.logger, model.ErrUnauthorized)
			return
		}
		h.issue(w, r, http.StatusOK, 0, appPasswordUser, model.RoleStaff)
		return
	}

	u, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		h.logger.Warn("login failed", "username", username, "remote", middleware.RealIP(r))
		writeError(w, r, h.logger, model.ErrUnauthorized)
		return
	}
	h.issue(w, r, http.StatusOK, u.ID, u.Username, u.Role)
}

func (h *AuthHandler) check(w http.ResponseWriter, r *http.Request, req authRequest) {
	tok := strings.TrimSpace(req.Token)
	if tok == "" {
		tok = middleware.BearerToken(r)
	}

	claims, err := h.tokens.Parse(tok)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"valid": false, "error": "invalid or expired token"})
		return
	}

	username, role := claims.Username, claims.Role
	if id := claims.UserID(); id != 0 {
		u, err := h.users.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if u == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"valid": false, "error": "user no longer exists"})
			return
		}
		username, role = u.Username, u.Role
	}

	n, err := h.users.Count(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"username":   username,
		"role":       role,
		"needsSetup": n == 0,
	})
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, status int, userID int64, username, role string) {
	tok, exp, err := h.tokens.Issue(userID, username, role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, status, tokenResponse{Token: tok, ExpiresAt: exp, Username: username, Role: role})
}

func validateCredentials(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	switch {
	case username == "":
		return "", model.Invalid("username", "is required")
	case len(username) > 64:
		return "", model.Invalid("username", "must be at most 64 characters")
	case len(password) < minPasswordLen:
		return "", model.Invalid("password", "must be at least 8 characters")
	}
	return username, nil
}
