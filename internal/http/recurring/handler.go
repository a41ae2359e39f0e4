package recurring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	httptx "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/recurring"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Handler struct {
	svc *recurring.Service
}

func NewHandler(svc *recurring.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/generate", h.generate)
	r.Patch("/{id}/active", h.setActive)
}

type templateResponse struct {
	ID             uuid.UUID          `json:"id"`
	AccountID      uuid.UUID          `json:"account_id"`
	CategoryID     *uuid.UUID         `json:"category_id,omitempty"`
	Title          string             `json:"title"`
	Amount         string             `json:"amount"`
	Type           transaction.Type   `json:"type"`
	Tags           []string           `json:"tags"`
	Notes          string             `json:"notes,omitempty"`
	Frequency      calendar.Frequency `json:"frequency"`
	StartDate      render.Date        `json:"start_date"`
	EndDate        *render.Date       `json:"end_date,omitempty"`
	NextOccurrence render.Date        `json:"next_occurrence"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      *time.Time         `json:"updated_at,omitempty"`
}

func toResponse(t *recurring.Template) templateResponse {
	resp := templateResponse{
		ID:             t.ID,
		AccountID:      t.AccountID,
		CategoryID:     t.CategoryID,
		Title:          t.Title,
		Amount:         t.Amount.StringFixed(2),
		Type:           t.Type,
		Tags:           t.Tags,
		Notes:          t.Notes,
		Frequency:      t.Frequency,
		StartDate:      render.Date(t.StartDate),
		NextOccurrence: render.Date(t.NextOccurrence),
		Active:         t.Active,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}

	if t.EndDate != nil {
		resp.EndDate = new(render.Date(*t.EndDate))
	}

	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	return resp
}

type createTemplateRequest struct {
	AccountID  uuid.UUID          `json:"account_id"`
	CategoryID *uuid.UUID         `json:"category_id,omitempty"`
	Title      string             `json:"title"`
	Amount     decimal.Decimal    `json:"amount"`
	Type       transaction.Type   `json:"type"`
	Tags       []string           `json:"tags,omitempty"`
	Notes      string             `json:"notes,omitempty"`
	Frequency  calendar.Frequency `json:"frequency"`
	StartDate  render.Date        `json:"start_date"`
	EndDate    *render.Date       `json:"end_date,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.svc.Create(r.Context(), recurring.CreateParams{
		OwnerID:    auth.Owner(r.Context()),
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Amount:     req.Amount,
		Type:       req.Type,
		Tags:       req.Tags,
		Notes:      req.Notes,
		Frequency:  req.Frequency,
		StartDate:  req.StartDate.Time(),
		EndDate:    render.DatePtr(req.EndDate),
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(t))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	activeOnly := false

	if s := r.URL.Query().Get("active"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			http.Error(w, "invalid active flag", http.StatusBadRequest)
			return
		}

		activeOnly = v
	}

	ts, err := h.svc.List(r.Context(), auth.Owner(r.Context()), activeOnly)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]templateResponse, len(ts))
	for i, t := range ts {
		resp[i] = toResponse(t)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	t, err := h.svc.Get(r.Context(), auth.Owner(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(t))
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.GenerateNext(r.Context(), auth.Owner(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, httptx.ToResponse(tx))
}

type activeRequest struct {
	Active bool `json:"active"`
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	var req activeRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.svc.SetActive(r.Context(), auth.Owner(r.Context()), id, req.Active); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
