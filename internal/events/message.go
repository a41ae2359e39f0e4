package events

import (
	"time"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type message struct {
	Kind        transaction.EventKind `json:"kind"`
	OwnerID     string                `json:"owner_id"`
	OccurredAt  time.Time             `json:"occurred_at"`
	Transaction transactionBody       `json:"transaction"`
}

type transactionBody struct {
	ID          string       `json:"id"`
	AccountID   string       `json:"account_id"`
	CategoryID  *string      `json:"category_id,omitempty"`
	Title       string       `json:"title"`
	Amount      string       `json:"amount"`
	Type        string       `json:"type"`
	Status      string       `json:"status"`
	Date        string       `json:"date"`
	Installment *installment `json:"installment,omitempty"`
	TemplateID  *string      `json:"template_id,omitempty"`
}

type installment struct {
	Number int `json:"number"`
	Total  int `json:"total"`
}

func newMessage(ev transaction.Event) message {
	tx := ev.Transaction

	body := transactionBody{
		ID:        tx.ID.String(),
		AccountID: tx.AccountID.String(),
		Title:     tx.Title,
		Amount:    tx.Amount.StringFixed(2),
		Type:      string(tx.Type),
		Status:    string(tx.Status),
		Date:      tx.Date.Format(time.DateOnly),
	}

	if tx.CategoryID != nil {
		body.CategoryID = new(tx.CategoryID.String())
	}

	if tx.Installment != nil {
		body.Installment = &installment{Number: tx.Installment.Number, Total: tx.Installment.Total}
	}

	if tx.Recurrence != nil && tx.Recurrence.TemplateID != nil {
		body.TemplateID = new(tx.Recurrence.TemplateID.String())
	}

	return message{
		Kind:        ev.Kind,
		OwnerID:     ev.OwnerID.String(),
		OccurredAt:  ev.OccurredAt,
		Transaction: body,
	}
}
