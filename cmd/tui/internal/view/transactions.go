package view

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type txState int

const (
	txStateBrowse txState = iota
	txStateCreate
	txStateTimeframe
)

var statusFilters = []*transaction.Status{
	nil,
	new(transaction.StatusPending),
	new(transaction.StatusOverdue),
	new(transaction.StatusPaid),
}

type TransactionsModel struct {
	CommonModel
	ledger  Ledger
	account *account.Account

	state     txState
	table     table.Model
	txs       []*transaction.Transaction
	form      *huh.Form
	fields    *txFields
	filterIdx int
	dates     DateRange
	picker    TimeframePicker
	status    string
	err       error
}

type txFields struct {
	title        string
	amount       string
	typ          transaction.Type
	paid         bool
	date         string
	installments string
}

func NewTransactionsModel(l Ledger, acc *account.Account) TransactionsModel {
	return TransactionsModel{
		ledger:  l,
		account: acc,
		picker:  NewTimeframePicker(l.Clock.Today),
		table: newTable([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Status", Width: 9},
			{Title: "Amount", Width: 12},
			{Title: "Title", Width: 32},
			{Title: "Part", Width: 6},
		}),
	}
}

func (m TransactionsModel) Title() string { return "Transactions: " + m.account.Name }

func (m TransactionsModel) ShortHelp() string {
	switch m.state {
	case txStateCreate:
		return "Esc: cancel"
	case txStateTimeframe:
		return "Esc: cancel | Enter: select"
	}

	return "Esc: back | n: new | i: import | p: paid | u: pending | x: delete | s: status | t: timeframe | r: refresh"
}

func (m TransactionsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TransactionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadTxsMsg:
		m.err = msg.err
		if msg.account != nil {
			m.account = msg.account
		}

		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case txChangedMsg:
		m.status = msg.status
		if msg.err != nil {
			m.status = errText.Render(msg.err.Error())
		}

		return m, m.loadCmd()

	case TimeframeSelectedMsg:
		m.dates = msg.Range
		m.state = txStateBrowse
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	switch m.state {
	case txStateCreate:
		return m.updateCreate(msg)
	case txStateTimeframe:
		return m.updateTimeframe(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return m, Back
		case "r":
			return m, m.loadCmd()
		case "n":
			return m.enterCreate()
		case "i":
			acc := m.account
			return m, func() tea.Msg { return OpenImportMsg{Account: acc} }
		case "s":
			m.filterIdx = (m.filterIdx + 1) % len(statusFilters)
			return m, m.loadCmd()
		case "t":
			m.picker = NewTimeframePicker(m.ledger.Clock.Today)
			m.state = txStateTimeframe
			m.table.Blur()

			return m, nil
		case "p":
			return m, m.mutateCmd("Marked paid.", func(tx *transaction.Transaction) error {
				ctx, cancel := DbCtx()
				defer cancel()

				_, err := m.ledger.Transactions.MarkPaid(ctx, m.ledger.OwnerID, tx.ID)

				return err
			})
		case "u":
			return m, m.mutateCmd("Marked pending.", func(tx *transaction.Transaction) error {
				ctx, cancel := DbCtx()
				defer cancel()

				_, err := m.ledger.Transactions.MarkPending(ctx, m.ledger.OwnerID, tx.ID)

				return err
			})
		case "x":
			return m, m.mutateCmd("Deleted.", func(tx *transaction.Transaction) error {
				ctx, cancel := DbCtx()
				defer cancel()

				return m.ledger.Transactions.Delete(ctx, m.ledger.OwnerID, tx.ID)
			})
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TransactionsModel) enterCreate() (tea.Model, tea.Cmd) {
	m.fields = &txFields{
		typ:          transaction.TypeExpense,
		date:         FormatDate(time.Now()),
		installments: "1",
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&m.fields.title).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title cannot be empty")
					}

					return nil
				}),
			huh.NewInput().
				Title("Amount").
				Value(&m.fields.amount).
				Validate(validDecimal),
			huh.NewSelect[transaction.Type]().
				Title("Type").
				Options(
					huh.NewOption("Expense", transaction.TypeExpense),
					huh.NewOption("Income", transaction.TypeIncome),
				).
				Value(&m.fields.typ),
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD").
				Value(&m.fields.date).
				Validate(func(s string) error {
					_, err := time.Parse(time.DateOnly, s)
					return err
				}),
			huh.NewInput().
				Title("Installments").
				Value(&m.fields.installments).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return fmt.Errorf("a whole number of at least 1")
					}

					return nil
				}),
			huh.NewConfirm().
				Title("Already paid?").
				Value(&m.fields.paid),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = txStateCreate
	m.table.Blur()

	return m, m.form.Init()
}

func (m TransactionsModel) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.state = txStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	save := m.createCmd()
	m.state = txStateBrowse
	m.form = nil
	m.table.Focus()

	return m, save
}

func (m TransactionsModel) updateTimeframe(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc && !m.picker.Editing() {
		m.state = txStateBrowse
		m.table.Focus()

		return m, nil
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)

	return m, cmd
}

func (m TransactionsModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	filter := "All"
	if f := statusFilters[m.filterIdx]; f != nil {
		filter = string(*f)
	}

	header := fmt.Sprintf("%s  balance %s | [s] Status: %s | [t] Dates: %s",
		m.account.Name, FormatAmount(m.account.Balance), activeStyle(filter), activeStyle(m.dates.String()))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		framed(m.table),
	)

	switch {
	case m.state == txStateCreate && m.form != nil:
		content = lipgloss.JoinHorizontal(lipgloss.Top, content,
			panel.Width(48).Render("New Transaction\n\n"+m.form.View()))
	case m.state == txStateTimeframe:
		content = lipgloss.JoinHorizontal(lipgloss.Top, content,
			panel.Width(36).Render(m.picker.View()))
	}

	if m.status != "" {
		content = faint.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *TransactionsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		part := ""
		if in := tx.Installment; in != nil {
			part = fmt.Sprintf("%d/%d", in.Number, in.Total)
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			statusStyle(tx.Status),
			FormatSigned(tx),
			tx.Title,
			part,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadTxsMsg struct {
	account *account.Account
	txs     []*transaction.Transaction
	err     error
}

func (m TransactionsModel) loadCmd() tea.Cmd {
	filter := transaction.ListFilter{
		OwnerID:   m.ledger.OwnerID,
		AccountID: &m.account.ID,
		Status:    statusFilters[m.filterIdx],
		StartDate: m.dates.Start,
		EndDate:   m.dates.End,
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		acc, err := m.ledger.Accounts.Get(ctx, m.ledger.OwnerID, m.account.ID)
		if err != nil {
			return loadTxsMsg{err: err}
		}

		txs, err := m.ledger.Transactions.List(ctx, filter)

		return loadTxsMsg{account: acc, txs: txs, err: err}
	}
}

type txChangedMsg struct {
	status string
	err    error
}

func (m TransactionsModel) mutateCmd(done string, fn func(tx *transaction.Transaction) error) tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return nil
	}

	tx := m.txs[idx]

	return func() tea.Msg {
		if err := fn(tx); err != nil {
			return txChangedMsg{err: err}
		}

		return txChangedMsg{status: done}
	}
}

func (m TransactionsModel) createCmd() tea.Cmd {
	f := m.fields
	date, _ := time.Parse(time.DateOnly, f.date)
	installments, _ := strconv.Atoi(f.installments)

	params := transaction.CreateParams{
		OwnerID:      m.ledger.OwnerID,
		AccountID:    m.account.ID,
		Title:        strings.TrimSpace(f.title),
		Amount:       decimal.RequireFromString(strings.TrimSpace(f.amount)),
		Type:         f.typ,
		Status:       transaction.StatusPending,
		Date:         date,
		Installments: installments,
	}

	if f.paid {
		params.Status = transaction.StatusPaid
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		if _, err := m.ledger.Transactions.Create(ctx, params); err != nil {
			return txChangedMsg{err: err}
		}

		return txChangedMsg{status: fmt.Sprintf("Created %s.", params.Title)}
	}
}
