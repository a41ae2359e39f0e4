package transaction

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/paid", h.markPaid)
	r.Post("/{id}/pending", h.markPending)
	r.Post("/{id}/split", h.split)
}

type recurrenceRequest struct {
	Frequency calendar.Frequency `json:"frequency"`
	EndDate   *render.Date       `json:"end_date,omitempty"`
}

type createTransactionRequest struct {
	AccountID    uuid.UUID          `json:"account_id"`
	CategoryID   *uuid.UUID         `json:"category_id,omitempty"`
	Title        string             `json:"title"`
	Amount       decimal.Decimal    `json:"amount"`
	Type         transaction.Type   `json:"type"`
	Status       transaction.Status `json:"status,omitempty"`
	Date         render.Date        `json:"date"`
	DueDate      *render.Date       `json:"due_date,omitempty"`
	Tags         []string           `json:"tags,omitempty"`
	Notes        string             `json:"notes,omitempty"`
	Installments int                `json:"installments,omitempty"`
	Recurrence   *recurrenceRequest `json:"recurrence,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := transaction.CreateParams{
		OwnerID:      auth.Owner(r.Context()),
		AccountID:    req.AccountID,
		CategoryID:   req.CategoryID,
		Title:        req.Title,
		Amount:       req.Amount,
		Type:         req.Type,
		Status:       req.Status,
		Date:         req.Date.Time(),
		DueDate:      render.DatePtr(req.DueDate),
		Tags:         req.Tags,
		Notes:        req.Notes,
		Installments: req.Installments,
	}

	if req.Recurrence != nil {
		params.Recurrence = &transaction.Recurrence{
			Frequency: req.Recurrence.Frequency,
			EndDate:   render.DatePtr(req.Recurrence.EndDate),
		}
	}

	tx, err := h.svc.Create(r.Context(), params)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, ToResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := transaction.ListFilter{OwnerID: auth.Owner(r.Context())}
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status := transaction.Status(s)
		if !status.Valid() {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		filter.Status = &status
	}

	for key, dst := range map[string]**uuid.UUID{
		"account_id":  &filter.AccountID,
		"template_id": &filter.TemplateID,
	} {
		if s := q.Get(key); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				http.Error(w, "invalid "+key, http.StatusBadRequest)
				return
			}

			*dst = &id
		}
	}

	for key, dst := range map[string]**time.Time{
		"start_date": &filter.StartDate,
		"end_date":   &filter.EndDate,
	} {
		if s := q.Get(key); s != "" {
			t, err := render.ParseDate(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}

			*dst = &t
		}
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponseList(txs))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	tx, err := h.svc.Get(r.Context(), auth.Owner(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(tx))
}

type updateTransactionRequest struct {
	AccountID  *uuid.UUID          `json:"account_id,omitempty"`
	CategoryID *uuid.UUID          `json:"category_id,omitempty"`
	Title      *string             `json:"title,omitempty"`
	Amount     *decimal.Decimal    `json:"amount,omitempty"`
	Type       *transaction.Type   `json:"type,omitempty"`
	Status     *transaction.Status `json:"status,omitempty"`
	Date       *render.Date        `json:"date,omitempty"`
	DueDate    *render.Date        `json:"due_date,omitempty"`
	Tags       []string            `json:"tags,omitempty"`
	Notes      *string             `json:"notes,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	var req updateTransactionRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Update(r.Context(), auth.Owner(r.Context()), id, transaction.UpdateParams{
		AccountID:  req.AccountID,
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Amount:     req.Amount,
		Type:       req.Type,
		Status:     req.Status,
		Date:       render.DatePtr(req.Date),
		DueDate:    render.DatePtr(req.DueDate),
		Tags:       req.Tags,
		Notes:      req.Notes,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), auth.Owner(r.Context()), id); err != nil {
		render.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.svc.MarkPaid)
}

func (h *Handler) markPending(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.svc.MarkPending)
}

func (h *Handler) setStatus(
	w http.ResponseWriter,
	r *http.Request,
	set func(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error),
) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	tx, err := set(r.Context(), auth.Owner(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, ToResponse(tx))
}

type splitRequest struct {
	Total int `json:"total"`
}

func (h *Handler) split(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	var req splitRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	parent, children, err := h.svc.Split(r.Context(), auth.Owner(r.Context()), id, req.Total)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, splitResponse{
		Parent:   ToResponse(parent),
		Children: ToResponseList(children),
	})
}
