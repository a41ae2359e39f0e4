// Package render writes JSON responses and maps ledger errors to HTTP statuses.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/importer/cgd"
	"github.com/MrJamesThe3rd/tally/internal/matching"
	"github.com/MrJamesThe3rd/tally/internal/recurring"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Decode reads a JSON request body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	return dec.Decode(v)
}

func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := Status(err)

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		http.Error(w, "internal error", status)

		return
	}

	http.Error(w, err.Error(), status)
}

func Status(err error) int {
	switch {
	case errors.Is(err, transaction.ErrNotFound),
		errors.Is(err, account.ErrNotFound),
		errors.Is(err, recurring.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transaction.ErrInvalidAmount),
		errors.Is(err, transaction.ErrInvalidInstallmentCount),
		errors.Is(err, transaction.ErrInvalidTransaction),
		errors.Is(err, recurring.ErrInvalidTemplate),
		errors.Is(err, account.ErrInvalidAccount),
		errors.Is(err, matching.ErrInvalidRule),
		errors.Is(err, importer.ErrUnknownBank),
		errors.Is(err, cgd.ErrUnrecognizedFormat),
		errors.Is(err, cgd.ErrMalformedRow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, transaction.ErrAccountMismatch),
		errors.Is(err, recurring.ErrTemplateInactiveOrExpired):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// Date is a calendar day carried as "2006-01-02" on the wire.
type Date time.Time

func (d Date) Time() time.Time { return time.Time(d) }

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(d).Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)

	t, err := ParseDate(s)
	if err != nil {
		return err
	}

	*d = Date(t)

	return nil
}

// ParseDate accepts a day or a full RFC 3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}

	return t, nil
}

// DatePtr converts an optional wire date.
func DatePtr(d *Date) *time.Time {
	if d == nil {
		return nil
	}

	return new(d.Time())
}

// ID reads the {id} path parameter, answering 400 itself when it is malformed.
func ID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}

	return id, true
}
