package transaction

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/calendar"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type Response struct {
	ID          uuid.UUID            `json:"id"`
	AccountID   uuid.UUID            `json:"account_id"`
	CategoryID  *uuid.UUID           `json:"category_id,omitempty"`
	Title       string               `json:"title"`
	Amount      string               `json:"amount"`
	Type        transaction.Type     `json:"type"`
	Status      transaction.Status   `json:"status"`
	Date        render.Date          `json:"date"`
	DueDate     *render.Date         `json:"due_date,omitempty"`
	Installment *installmentResponse `json:"installment,omitempty"`
	Recurrence  *recurrenceResponse  `json:"recurrence,omitempty"`
	Tags        []string             `json:"tags"`
	Notes       string               `json:"notes,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   *time.Time           `json:"updated_at,omitempty"`
}

type installmentResponse struct {
	Number   int        `json:"number"`
	Total    int        `json:"total"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

type recurrenceResponse struct {
	Frequency  calendar.Frequency `json:"frequency"`
	EndDate    *render.Date       `json:"end_date,omitempty"`
	TemplateID *uuid.UUID         `json:"template_id,omitempty"`
}

type splitResponse struct {
	Parent   Response   `json:"parent"`
	Children []Response `json:"children"`
}

// ToResponse is the wire form of a transaction, shared by every handler that returns one.
func ToResponse(tx *transaction.Transaction) Response {
	resp := Response{
		ID:         tx.ID,
		AccountID:  tx.AccountID,
		CategoryID: tx.CategoryID,
		Title:      tx.Title,
		Amount:     tx.Amount.StringFixed(2),
		Type:       tx.Type,
		Status:     tx.Status,
		Date:       render.Date(tx.Date),
		DueDate:    datePtr(tx.DueDate),
		Tags:       tx.Tags,
		Notes:      tx.Notes,
		CreatedAt:  tx.CreatedAt,
		UpdatedAt:  tx.UpdatedAt,
	}

	if resp.Tags == nil {
		resp.Tags = []string{}
	}

	if in := tx.Installment; in != nil {
		resp.Installment = &installmentResponse{
			Number:   in.Number,
			Total:    in.Total,
			ParentID: in.ParentID,
		}
	}

	if rec := tx.Recurrence; rec != nil {
		resp.Recurrence = &recurrenceResponse{
			Frequency:  rec.Frequency,
			EndDate:    datePtr(rec.EndDate),
			TemplateID: rec.TemplateID,
		}
	}

	return resp
}

func ToResponseList(txs []*transaction.Transaction) []Response {
	resp := make([]Response, len(txs))
	for i, tx := range txs {
		resp[i] = ToResponse(tx)
	}

	return resp
}

func datePtr(t *time.Time) *render.Date {
	if t == nil {
		return nil
	}

	return new(render.Date(*t))
}
