package importcsv

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	httptx "github.com/MrJamesThe3rd/tally/internal/http/transaction"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const maxStatementSize = 10 << 20

type Handler struct {
	importSvc *importer.Service
}

func NewHandler(importSvc *importer.Service) *Handler {
	return &Handler{importSvc: importSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
	r.Post("/confirm", h.confirmImport)
	r.Get("/banks", h.listBanks)
}

func (h *Handler) listBanks(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, http.StatusOK, h.importSvc.Banks())
}

type importResponse struct {
	Imported     int               `json:"imported"`
	Transactions []httptx.Response `json:"transactions"`
}

// rowDTO is a statement row that was parsed but not booked.
type rowDTO struct {
	Title      string           `json:"title"`
	Amount     decimal.Decimal  `json:"amount"`
	Type       transaction.Type `json:"type"`
	Date       render.Date      `json:"date"`
	Notes      string           `json:"notes,omitempty"`
	CategoryID *uuid.UUID       `json:"category_id,omitempty"`
}

type conflictDTO struct {
	Incoming rowDTO          `json:"incoming"`
	Existing httptx.Response `json:"existing"`
}

type importConflictResponse struct {
	New       []rowDTO      `json:"new"`
	Conflicts []conflictDTO `json:"conflicts"`
}

type confirmRequest struct {
	AccountID uuid.UUID `json:"account_id"`
	Rows      []rowDTO  `json:"rows"`
}

func toRowDTO(p transaction.CreateParams) rowDTO {
	return rowDTO{
		Title:      p.Title,
		Amount:     p.Amount,
		Type:       p.Type,
		Date:       render.Date(p.Date),
		Notes:      p.Notes,
		CategoryID: p.CategoryID,
	}
}

func (d rowDTO) params() transaction.CreateParams {
	return transaction.CreateParams{
		Title:      d.Title,
		Amount:     d.Amount,
		Type:       d.Type,
		Date:       d.Date.Time(),
		Notes:      d.Notes,
		CategoryID: d.CategoryID,
	}
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxStatementSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	bank, err := importer.ParseBank(r.FormValue("bank"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	accountID, err := uuid.Parse(r.FormValue("account_id"))
	if err != nil {
		http.Error(w, "account_id field is required", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := h.importSvc.Import(r.Context(), importer.Params{
		OwnerID:   auth.Owner(r.Context()),
		AccountID: accountID,
		Bank:      bank,
		File:      file,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]rowDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}

		for _, p := range result.New {
			resp.New = append(resp.New, toRowDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toRowDTO(c.Incoming),
				Existing: httptx.ToResponse(c.Existing),
			})
		}

		render.JSON(w, http.StatusConflict, resp)

		return
	}

	render.JSON(w, http.StatusCreated, importResponse{
		Imported:     len(result.Imported),
		Transactions: httptx.ToResponseList(result.Imported),
	})
}

// confirmImport books the rows the client kept after a conflicting import.
func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := render.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows := make([]transaction.CreateParams, 0, len(req.Rows))
	for _, row := range req.Rows {
		rows = append(rows, row.params())
	}

	txs, err := h.importSvc.Book(r.Context(), importer.BookParams{
		OwnerID:   auth.Owner(r.Context()),
		AccountID: req.AccountID,
		Rows:      rows,
	})
	if err != nil {
		render.Error(w, r, err)
		return
	}

	render.JSON(w, http.StatusCreated, importResponse{
		Imported:     len(txs),
		Transactions: httptx.ToResponseList(txs),
	})
}
