package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dukerupert/flock/internal/model"
)

const maxImportBytes = 5 << 20

// importColumns maps accepted header spellings to member fields.
var importColumns = map[string]string{
	"first_name":    "firstName",
	"firstname":     "firstName",
	"first name":    "firstName",
	"last_name":     "lastName",
	"lastname":      "lastName",
	"last name":     "lastName",
	"name":          "name",
	"email":         "email",
	"phone":         "phone",
	"mobile":        "phone",
	"address":       "address",
	"date_of_birth": "dateOfBirth",
	"dob":           "dateOfBirth",
	"birthday":      "dateOfBirth",
	"gender":        "gender",
	"notes":         "notes",
	"status":        "status",
}

type importResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// Import creates members from a CSV with a header row. The CSV is either the
// raw request body or a multipart "file" field. Rows whose phone matches an
// existing member are skipped.
func (h *MemberHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := importReader(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	defer body.Close()

	cr := csv.NewReader(io.LimitReader(body, maxImportBytes))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		writeError(w, r, h.logger, model.Invalid("file", "missing CSV header row"))
		return
	}
	cols := make(map[string]int)
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if field, ok := importColumns[key]; ok {
			cols[field] = i
		}
	}
	_, hasFirst := cols["firstName"]
	_, hasName := cols["name"]
	if !hasFirst && !hasName {
		writeError(w, r, h.logger, model.Invalid("file", "CSV needs a first_name or name column"))
		return
	}

	res := importResult{Errors: []string{}}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if err != nil {
			h.logger.Warn("member import aborted", "line", line, "imported", res.Imported, "error", err)
			writeError(w, r, h.logger, model.Invalid("file", fmt.Sprintf("upload failed at line %d after %d imported rows: %v", line, res.Imported, err)))
			return
		}

		in := memberFromRecord(rec, cols)
		if err := normalizeMember(&in); err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if in.Phone != "" {
			exists, err := h.store.PhoneExists(r.Context(), in.Phone)
			if err != nil {
				writeError(w, r, h.logger, err)
				return
			}
			if exists {
				res.Skipped++
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: phone %s already belongs to a member", line, in.Phone))
				continue
			}
		}

		if _, err := h.store.Create(r.Context(), in); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		res.Imported++
	}

	h.logger.Info("members imported", "imported", res.Imported, "skipped", res.Skipped)
	writeJSON(w, http.StatusOK, res)
}

func importReader(r *http.Request) (io.ReadCloser, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxImportBytes); err != nil {
			return nil, model.Invalid("file", "invalid multipart form")
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, model.Invalid("file", "is required")
		}
		return f, nil
	}
	return r.Body, nil
}

func memberFromRecord(rec []string, cols map[string]int) model.MemberInput {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	in := model.MemberInput{
		FirstName:   get("firstName"),
		LastName:    get("lastName"),
		Email:       get("email"),
		Phone:       get("phone"),
		Address:     get("address"),
		DateOfBirth: get("dateOfBirth"),
		Gender:      get("gender"),
		Notes:       get("notes"),
		Status:      get("status"),
	}
	if in.FirstName == "" && in.LastName == "" {
		if first, last, ok := strings.Cut(get("name"), " "); ok {
			in.FirstName, in.LastName = first, strings.TrimSpace(last)
		} else {
			in.FirstName = first
		}
	}
	return in
}
