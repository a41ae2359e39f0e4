package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/config"
)

type model struct {
	ledger view.Ledger

	currentView View
	status      string

	accountsView     view.AccountsModel
	transactionsView view.TransactionsModel
	importView       view.ImportModel
}

type View int

const (
	ViewMenu         View = 0
	ViewAccounts     View = 1
	ViewTransactions View = 2
	ViewImport       View = 3
)

func initialModel() (model, func() error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	owner, err := uuid.Parse(cfg.TUI.OwnerID)
	if err != nil {
		slog.Error("TUI_OWNER_ID must be a valid uuid", "error", err)
		os.Exit(1)
	}

	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to build ledger", "error", err)
		os.Exit(1)
	}

	if err := a.Migrate(); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	l := view.Ledger{App: a, OwnerID: owner}

	return model{
		ledger:       l,
		currentView:  ViewMenu,
		accountsView: view.NewAccountsModel(l),
	}, a.Close
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewAccounts
				m.accountsView = view.NewAccountsModel(m.ledger)

				return m, m.accountsView.Init()
			case "s":
				m.status = "Sweeping overdue transactions..."
				return m, m.sweepCmd()
			case "g":
				m.status = "Generating due recurring transactions..."
				return m, m.generateCmd()
			}
		}
	case jobDoneMsg:
		m.status = msg.text
		if msg.err != nil {
			m.status = fmt.Sprintf("Error: %v", msg.err)
		}

		return m, nil
	case view.AccountSelectedMsg:
		m.currentView = ViewTransactions
		m.transactionsView = view.NewTransactionsModel(m.ledger, msg.Account)

		return m, m.transactionsView.Init()
	case view.OpenImportMsg:
		m.currentView = ViewImport
		m.importView = view.NewImportModel(m.ledger, msg.Account)

		return m, m.importView.Init()
	case view.BackMsg:
		switch m.currentView {
		case ViewImport:
			m.currentView = ViewTransactions
			return m, m.transactionsView.Init()
		case ViewTransactions:
			m.currentView = ViewAccounts
			return m, m.accountsView.Init()
		}

		m.currentView = ViewMenu

		return m, nil
	}

	switch m.currentView {
	case ViewAccounts:
		var newModel tea.Model
		newModel, cmd = m.accountsView.Update(msg)
		m.accountsView = newModel.(view.AccountsModel)
	case ViewTransactions:
		var newModel tea.Model
		newModel, cmd = m.transactionsView.Update(msg)
		m.transactionsView = newModel.(view.TransactionsModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		s := "Tally\n\n" +
			"1. Accounts\n" +
			"s. Sweep overdue\n" +
			"g. Generate due recurring\n\n" +
			"q. Quit"
		if m.status != "" {
			s += "\n\n" + m.status
		}

		return lipgloss.NewStyle().Padding(2).Render(s)
	case ViewAccounts:
		return frame(m.accountsView)
	case ViewTransactions:
		return frame(m.transactionsView)
	case ViewImport:
		return frame(m.importView)
	}

	return "Unknown View"
}

type screen interface {
	tea.Model
	Title() string
	ShortHelp() string
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).PaddingLeft(1)
	helpStyle  = lipgloss.NewStyle().Faint(true).PaddingLeft(1)
)

func frame(s screen) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(s.Title()),
		s.View(),
		helpStyle.Render(s.ShortHelp()),
	)
}

type jobDoneMsg struct {
	text string
	err  error
}

// A zero day lets the services use today in the ledger's timezone.
func (m model) sweepCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := view.DbCtx()
		defer cancel()

		n, err := m.ledger.Transactions.SweepOverdue(ctx, m.ledger.OwnerID, time.Time{})

		return jobDoneMsg{text: fmt.Sprintf("%d transactions marked overdue.", n), err: err}
	}
}

func (m model) generateCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := view.DbCtx()
		defer cancel()

		txs, err := m.ledger.Templates.GenerateDue(ctx, m.ledger.OwnerID, time.Time{})

		return jobDoneMsg{text: fmt.Sprintf("%d recurring transactions generated.", len(txs)), err: err}
	}
}

func main() {
	m, closeLedger := initialModel()
	defer func() {
		if err := closeLedger(); err != nil {
			slog.Error("failed to close ledger", "error", err)
		}
	}()

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
