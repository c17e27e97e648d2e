package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/flock/internal/model"
	"github.com/dukerupert/flock/internal/phone"
	"github.com/dukerupert/flock/internal/store"
)

type MemberHandler struct {
	store  *store.MemberStore
	logger *slog.Logger
}

func NewMemberHandler(s *store.MemberStore, logger *slog.Logger) *MemberHandler {
	return &MemberHandler{store: s, logger: logger}
}

// List returns active members; ?status=all includes retired members.
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("status") != "all"
	members, err := h.store.List(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if members == nil {
		members = []model.Member{}
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *MemberHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if m == nil {
		writeError(w, r, h.logger, model.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MemberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in model.MemberInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if err := normalizeMember(&in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	m, err := h.store.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("member created", "id", m.ID)
	writeJSON(w, http.StatusCreated, m)
}

func (h *MemberHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing == nil {
		writeError(w, r, h.logger, model.ErrNotFound)
		return
	}

	var in model.MemberInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if in.Status == "" {
		in.Status = existing.Status
	}
	if err := normalizeMember(&in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	m, err := h.store.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Delete hard-deletes a member and their attendance history.
func (h *MemberHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if existing == nil {
		writeError(w, r, h.logger, model.ErrNotFound)
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("member deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id})
}

func normalizeMember(in *model.MemberInput) error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Status = strings.TrimSpace(in.Status)

	if in.FirstName == "" {
		return model.Invalid("firstName", "is required")
	}
	if in.LastName == "" {
		return model.Invalid("lastName", "is required")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return model.Invalid("email", "is not a valid address")
	}
	if in.Phone != "" && !phone.Valid(in.Phone) {
		return model.Invalid("phone", "must have at least 10 digits")
	}
	if in.DateOfBirth != "" {
		d, err := model.NormalizeDate(in.DateOfBirth)
		if err != nil {
			return model.Invalid("dateOfBirth", "must be YYYY-MM-DD")
		}
		in.DateOfBirth = d
	}

	switch strings.ToLower(in.Status) {
	case "", "active":
		in.Status = model.MemberStatusActive
	case "inactive":
		in.Status = model.MemberStatusInactive
	default:
		return model.Invalid("status", "must be Active or Inactive")
	}
	return nil
}
