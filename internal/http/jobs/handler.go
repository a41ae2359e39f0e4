// Package jobs exposes the periodic ledger jobs so an external scheduler can trigger them.
package jobs

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	httptx "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/recurring"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Handler struct {
	txs       *transaction.Service
	templates *recurring.Service
}

func NewHandler(txs *transaction.Service, templates *recurring.Service) *Handler {
	return &Handler{txs: txs, templates: templates}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/sweep", h.sweep)
	r.Post("/generate", h.generate)
}

// jobRequest is optional; an empty body means "as of today".
type jobRequest struct {
	AsOf *render.Date `json:"as_of,omitempty"`
}

func decodeAsOf(r *http.Request) (time.Time, error) {
	var req jobRequest
	if err := render.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		return time.Time{}, err
	}

	if req.AsOf == nil {
		return time.Time{}, nil
	}

	return req.AsOf.Time(), nil
}

type sweepResponse struct {
	Updated int64 `json:"updated"`
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	asOf, err := decodeAsOf(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := h.txs.SweepOverdue(r.Context(), auth.Owner(r.Context()), asOf)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, sweepResponse{Updated: n})
}

type generateResponse struct {
	Generated    int               `json:"generated"`
	Transactions []httptx.Response `json:"transactions"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	asOf, err := decodeAsOf(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	txs, err := h.templates.GenerateDue(r.Context(), auth.Owner(r.Context()), asOf)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, generateResponse{
		Generated:    len(txs),
		Transactions: httptx.ToResponseList(txs),
	})
}
