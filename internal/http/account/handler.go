package account

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Reconciler interface {
	Reconcile(ctx context.Context, ownerID, accountID uuid.UUID) (transaction.Reconciliation, error)
}

type Handler struct {
	svc        *account.Service
	reconciler Reconciler
}

func NewHandler(svc *account.Service, reconciler Reconciler) *Handler {
	return &Handler{svc: svc, reconciler: reconciler}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/balance", h.balance)
	r.Get("/{id}/reconcile", h.reconcile)
	r.Patch("/{id}/active", h.setActive)
}

type accountResponse struct {
	ID             uuid.UUID    `json:"id"`
	Name           string       `json:"name"`
	Type           account.Type `json:"type"`
	OpeningBalance string       `json:"opening_balance"`
	Balance        string       `json:"balance"`
	Active         bool         `json:"active"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      *time.Time   `json:"updated_at,omitempty"`
}

func toResponse(acc *account.Account) accountResponse {
	return accountResponse{
		ID:             acc.ID,
		Name:           acc.Name,
		Type:           acc.Type,
		OpeningBalance: acc.OpeningBalance.StringFixed(2),
		Balance:        acc.Balance.StringFixed(2),
		Active:         acc.Active,
		CreatedAt:      acc.CreatedAt,
		UpdatedAt:      acc.UpdatedAt,
	}
}

type createAccountRequest struct {
	Name           string          `json:"name"`
	Type           account.Type    `json:"type"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	acc, err := h.svc.Create(r.Context(), account.CreateParams{
		OwnerID:        auth.Owner(r.Context()),
		Name:           req.Name,
		Type:           req.Type,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(acc))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accs, err := h.svc.List(r.Context(), auth.Owner(r.Context()))
	if err != nil {
		render.Error(w, r, err)
		return
	}

	resp := make([]accountResponse, len(accs))
	for i, acc := range accs {
		resp[i] = toResponse(acc)
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	acc, err := h.svc.Get(r.Context(), auth.Owner(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, toResponse(acc))
}

type balanceResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Balance   string    `json:"balance"`
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	b, err := h.svc.Balance(r.Context(), auth.Owner(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, balanceResponse{AccountID: id, Balance: b.StringFixed(2)})
}

type reconcileResponse struct {
	AccountID uuid.UUID `json:"account_id"`
	Stored    string    `json:"stored"`
	Expected  string    `json:"expected"`
	Balanced  bool      `json:"balanced"`
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := render.ID(w, r)
	if !ok {
		return
	}

	rec, err := h.reconciler.Reconcile(r.Context(), auth.Owner(r.Context()), id)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, reconcileResponse{
		AccountID: rec.AccountID,
		Stored:    rec.Stored.StringFixed(2),
		Expected:  rec.Expected.StringFixed(2),
		Balanced:  rec.Balanced(),
	})
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
