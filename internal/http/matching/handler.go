package matching

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/matching"
)

type Handler struct {
	svc *matching.Service
}

func NewHandler(svc *matching.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Post("/rules", h.learn)
}

type ruleResponse struct {
	ID         uuid.UUID  `json:"id"`
	RawPattern string     `json:"raw_pattern"`
	Title      string     `json:"title,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

type suggestResponse struct {
	Raw  string        `json:"raw"`
	Rule *ruleResponse `json:"rule"`
}

func toResponse(rule *matching.Rule) *ruleResponse {
	if rule == nil {
		return nil
	}

	return &ruleResponse{
		ID:         rule.ID,
		RawPattern: rule.RawPattern,
		Title:      rule.Title,
		CategoryID: rule.CategoryID,
	}
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("raw")
	if raw == "" {
		http.Error(w, "raw query parameter is required", http.StatusBadRequest)
		return
	}

	rule, err := h.svc.Suggest(r.Context(), auth.Owner(r.Context()), raw)
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusOK, suggestResponse{Raw: raw, Rule: toResponse(rule)})
}

type learnRequest struct {
	RawPattern string     `json:"raw_pattern"`
	Title      string     `json:"title,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rule, err := h.svc.Learn(r.Context(), matching.LearnParams{
		OwnerID:    auth.Owner(r.Context()),
		RawPattern: req.RawPattern,
		Title:      req.Title,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, toResponse(rule))
}
