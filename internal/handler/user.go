package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/flock/internal/auth"
	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/store"
	"golang.org/x/crypto/bcrypt"
)

var errSelfDelete = &model.ConflictError{Reason: "you cannot delete your own account"}

type UserHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewUserHandler(us *store.UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: us, logger: logger}
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	username, err := validateCredentials(req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleStaff
	}
	if role != model.RoleAdmin && role != model.RoleStaff {
		writeError(w, r, h.logger, model.Invalid("role", "must be admin or staff"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	u, err := h.users.Create(r.Context(), username, string(hash), role)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("user created", "user_id", u.ID, "username", u.Username, "role", u.Role, "by", auth.Username(r.Context()))
	writeJSON(w, http.StatusCreated, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if id == auth.UserID(r.Context()) {
		writeError(w, r, h.logger, errSelfDelete)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		if !errors.Is(err, model.ErrNotFound) && !errors.Is(err, model.ErrConflict) {
			h.logger.Error("delete user", "user_id", id, "error", err)
		}
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("user deleted", "user_id", id, "by", auth.Username(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}
