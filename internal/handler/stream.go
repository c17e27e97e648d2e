package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/flock/internal/livestream"
	"github.com/dukerupert/flock/internal/model"
)

type StreamHandler struct {
	live   *livestream.Service
	logger *slog.Logger
}

func NewStreamHandler(live *livestream.Service, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{live: live, logger: logger}
}

// Verify exchanges an access code for the stream credentials.
func (h *StreamHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	access, err := h.live.ValidateCode(r.Context(), req.Code)
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"valid": false, "error": "invalid access code"})
		return
	case errors.Is(err, model.ErrRevoked), errors.Is(err, model.ErrExpired), errors.Is(err, model.ErrNoActiveStream):
		writeJSON(w, http.StatusForbidden, map[string]any{"valid": false, "error": err.Error()})
		return
	case err != nil:
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":      true,
		"videoId":    access.VideoID,
		"videoUrl":   access.VideoURL,
		"password":   access.Password,
		"memberName": access.MemberName,
	})
}

func (h *StreamHandler) ListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.live.RecentCodes(r.Context(), parseLimit(r, 50))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if codes == nil {
		codes = []model.StreamAccessCode{}
	}
	writeJSON(w, http.StatusOK, codes)
}

func (h *StreamHandler) RevokeCode(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if err := h.live.RevokeCode(r.Context(), code); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "code": code})
}

func (h *StreamHandler) GetPassword(w http.ResponseWriter, r *http.Request) {
	p, err := h.live.Current(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// RotatePassword replaces the active password. An explicit password in the
// body is used as-is; otherwise one is generated.
func (h *StreamHandler) RotatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
		VideoID  string `json:"videoId"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	res, err := h.live.Rotate(r.Context(), livestream.RotateRequest{
		VideoID:  req.VideoID,
		Password: req.Password,
		Type:     model.RotationManual,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := map[string]any{
		"success":     true,
		"id":          res.Password.ID,
		"password":    res.Password.Password,
		"videoId":     res.Password.VideoID,
		"videoUrl":    res.Password.VideoURL,
		"vimeoSynced": res.Password.VimeoSynced,
		"expiresAt":   res.Password.ExpiresAt,
	}
	if res.Warning != "" {
		out["warning"] = res.Warning
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StreamHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sch, err := h.live.Schedule(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

func (h *StreamHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DayOfWeek *int   `json:"dayOfWeek"`
		TimeOfDay string `json:"timeOfDay"`
		Enabled   *bool  `json:"enabled"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	current, err := h.live.Schedule(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	day, tod, enabled := current.DayOfWeek, current.TimeOfDay, current.Enabled
	if req.DayOfWeek != nil {
		day = *req.DayOfWeek
	}
	if req.TimeOfDay != "" {
		tod = req.TimeOfDay
	}
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sch, err := h.live.UpdateSchedule(r.Context(), day, tod, enabled)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info("rotation schedule updated", "day", sch.DayOfWeek, "time", sch.TimeOfDay, "enabled", sch.Enabled)
	writeJSON(w, http.StatusOK, sch)
}
