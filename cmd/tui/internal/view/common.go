package view

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const dbTimeout = 5 * time.Second

// Ledger is what every screen needs: the services and whose books they show.
type Ledger struct {
	*app.App
	OwnerID uuid.UUID
}

type CommonModel struct {
	Width  int
	Height int
}

type BackMsg struct{}

func Back() tea.Msg {
	return BackMsg{}
}

func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func FormatSigned(tx *transaction.Transaction) string {
	return formatSigned(tx.Amount, tx.Type)
}

func formatSigned(amount decimal.Decimal, typ transaction.Type) string {
	if typ == transaction.TypeExpense {
		return "-" + FormatAmount(amount)
	}

	return "+" + FormatAmount(amount)
}

func FormatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DbCtx returns a context with a standard timeout for storage operations.
func DbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), dbTimeout)
}

var (
	faint   = lipgloss.NewStyle().Faint(true)
	errText = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	panel   = lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63"))
)

func statusStyle(s transaction.Status) string {
	color := map[transaction.Status]string{
		transaction.StatusPaid:    "42",
		transaction.StatusPending: "214",
		transaction.StatusOverdue: "203",
	}[s]

	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(s))
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func newTable(columns []table.Column) table.Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

func framed(t table.Model) string {
	return lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(t.View())
}
