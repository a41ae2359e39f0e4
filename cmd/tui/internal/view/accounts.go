package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/account"
)

// AccountSelectedMsg asks the parent to open the transactions of an account.
type AccountSelectedMsg struct {
	Account *account.Account
}

type accountsState int

const (
	accountsStateBrowse accountsState = iota
	accountsStateCreate
)

type AccountsModel struct {
	CommonModel
	ledger Ledger

	state    accountsState
	table    table.Model
	accounts []*account.Account
	form     *huh.Form
	status   string
	err      error

	// huh writes through these pointers, so they must survive model copies
	fields *accountFields
}

type accountFields struct {
	name    string
	typ     account.Type
	opening string
}

func NewAccountsModel(l Ledger) AccountsModel {
	return AccountsModel{
		ledger: l,
		table: newTable([]table.Column{
			{Title: "Name", Width: 24},
			{Title: "Type", Width: 12},
			{Title: "Opening", Width: 12},
			{Title: "Balance", Width: 12},
			{Title: "Active", Width: 6},
		}),
	}
}

func (m AccountsModel) Title() string { return "Accounts" }

func (m AccountsModel) ShortHelp() string {
	if m.state == accountsStateCreate {
		return "Esc: cancel"
	}

	return "Esc: back | Enter: transactions | n: new | c: reconcile | r: refresh"
}

func (m AccountsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m AccountsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadAccountsMsg:
		m.err = msg.err
		m.accounts = msg.accounts
		m.refreshTable()

		return m, nil

	case accountSavedMsg:
		m.status = msg.status

		if msg.err != nil {
			m.status = errText.Render(msg.err.Error())
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == accountsStateCreate {
		return m.updateCreate(msg)
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			return m, Back
		case "r":
			return m, m.loadCmd()
		case "n":
			return m.enterCreate()
		case "c":
			if acc := m.selected(); acc != nil {
				return m, m.reconcileCmd(acc)
			}
		case "enter":
			if acc := m.selected(); acc != nil {
				return m, func() tea.Msg { return AccountSelectedMsg{Account: acc} }
			}
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m AccountsModel) selected() *account.Account {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.accounts) {
		return nil
	}

	return m.accounts[idx]
}

func (m AccountsModel) enterCreate() (tea.Model, tea.Cmd) {
	m.fields = &accountFields{typ: account.TypeChecking, opening: "0.00"}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&m.fields.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name cannot be empty")
					}

					return nil
				}),
			huh.NewSelect[account.Type]().
				Title("Type").
				Options(
					huh.NewOption("Checking", account.TypeChecking),
					huh.NewOption("Savings", account.TypeSavings),
					huh.NewOption("Credit card", account.TypeCreditCard),
					huh.NewOption("Cash", account.TypeCash),
					huh.NewOption("Investment", account.TypeInvestment),
				).
				Value(&m.fields.typ),
			huh.NewInput().
				Title("Opening balance").
				Value(&m.fields.opening).
				Validate(validDecimal),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = accountsStateCreate
	m.table.Blur()

	return m, m.form.Init()
}

func (m AccountsModel) updateCreate(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		m.state = accountsStateBrowse
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
	m.state = accountsStateBrowse
	m.form = nil
	m.table.Focus()

	return m, save
}

func (m AccountsModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	content := framed(m.table)

	if m.state == accountsStateCreate && m.form != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content,
			panel.Width(48).Render("New Account\n\n"+m.form.View()))
	}

	if m.status != "" {
		content = faint.Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *AccountsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.accounts))
	for _, acc := range m.accounts {
		active := "yes"
		if !acc.Active {
			active = "no"
		}

		rows = append(rows, table.Row{
			acc.Name,
			string(acc.Type),
			FormatAmount(acc.OpeningBalance),
			FormatAmount(acc.Balance),
			active,
		})
	}

	m.table.SetRows(rows)
}

func validDecimal(s string) error {
	if _, err := decimal.NewFromString(strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("not a number")
	}

	return nil
}

// Messages

type loadAccountsMsg struct {
	accounts []*account.Account
	err      error
}

func (m AccountsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		accs, err := m.ledger.Accounts.List(ctx, m.ledger.OwnerID)

		return loadAccountsMsg{accounts: accs, err: err}
	}
}

type accountSavedMsg struct {
	status string
	err    error
}

func (m AccountsModel) createCmd() tea.Cmd {
	params := account.CreateParams{
		OwnerID:        m.ledger.OwnerID,
		Name:           m.fields.name,
		Type:           m.fields.typ,
		OpeningBalance: decimal.RequireFromString(strings.TrimSpace(m.fields.opening)),
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		acc, err := m.ledger.Accounts.Create(ctx, params)
		if err != nil {
			return accountSavedMsg{err: err}
		}

		return accountSavedMsg{status: fmt.Sprintf("Created %s.", acc.Name)}
	}
}

func (m AccountsModel) reconcileCmd(acc *account.Account) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		rec, err := m.ledger.Transactions.Reconcile(ctx, m.ledger.OwnerID, acc.ID)
		if err != nil {
			return accountSavedMsg{err: err}
		}

		if rec.Balanced() {
			return accountSavedMsg{status: fmt.Sprintf("%s is balanced at %s.", acc.Name, FormatAmount(rec.Stored))}
		}

		return accountSavedMsg{err: fmt.Errorf("%s: stored %s, expected %s",
			acc.Name, FormatAmount(rec.Stored), FormatAmount(rec.Expected))}
	}
}
