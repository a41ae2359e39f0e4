package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/account"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const importTimeout = 2 * time.Minute

// OpenImportMsg asks the parent to import a statement into an account.
type OpenImportMsg struct {
	Account *account.Account
}

type importStep int

const (
	stepBank importStep = iota
	stepFile
	stepRunning
	stepConflicts
	stepDone
)

// ImportModel walks through bank, file and result for one account. A statement
// that repeats booked rows stops at a review where the user picks which of them
// to book anyway.
type ImportModel struct {
	CommonModel
	ledger  Ledger
	account *account.Account

	step   importStep
	bank   *importer.Bank
	form   *huh.Form
	picker filepicker.Model
	booked table.Model
	file   string
	err    error

	newRows   []transaction.CreateParams
	conflicts []transaction.Conflict
	selected  map[int]bool
	review    list.Model
}

func NewImportModel(l Ledger, acc *account.Account) ImportModel {
	picker := filepicker.New()
	picker.CurrentDirectory, _ = os.Getwd()
	picker.AllowedTypes = []string{".csv", ".CSV"}
	picker.DirAllowed = false
	picker.FileAllowed = true
	picker.SetHeight(15)

	m := ImportModel{
		ledger:  l,
		account: acc,
		bank:    new(importer.BankCGD),
		picker:  picker,
		booked: newTable([]table.Column{
			{Title: "Date", Width: 12},
			{Title: "Amount", Width: 12},
			{Title: "Title", Width: 40},
		}),
	}
	m.form = m.bankForm()

	return m
}

func (m ImportModel) bankForm() *huh.Form {
	options := make([]huh.Option[importer.Bank], 0)
	for _, b := range m.ledger.Importer.Banks() {
		options = append(options, huh.NewOption(strings.ToUpper(string(b)), b))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[importer.Bank]().
				Title("Statement format").
				Options(options...).
				Value(m.bank),
		),
	).WithWidth(40).WithShowHelp(false)
}

func (m ImportModel) Title() string { return "Import into " + m.account.Name }

func (m ImportModel) ShortHelp() string {
	switch m.step {
	case stepFile:
		return "Esc: change bank | Enter: import file"
	case stepConflicts:
		return "Space: toggle | a: all | n: none | Enter: book | Esc: discard"
	case stepDone:
		return "Esc: back"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case importDoneMsg:
		if msg.err == nil && len(msg.result.Conflicts) > 0 {
			return m.startReview(msg.result), nil
		}

		m.step = stepDone
		m.err = msg.err

		if msg.result != nil {
			m.booked.SetRows(bookedRows(msg.result.Imported))
		}

		return m, nil

	case bookDoneMsg:
		m.step = stepDone
		m.err = msg.err
		m.booked.SetRows(bookedRows(msg.txs))

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.step == stepConflicts {
			return m.updateReview(msg)
		}
	}

	switch m.step {
	case stepBank:
		form, cmd := m.form.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.form = f
		}

		if m.form.State != huh.StateCompleted {
			return m, cmd
		}

		m.step = stepFile

		return m, m.picker.Init()

	case stepFile:
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)

		if ok, path := m.picker.DidSelectFile(msg); ok {
			m.step = stepRunning
			m.file = path

			return m, m.importCmd(*m.bank, path)
		}

		return m, cmd

	case stepDone:
		var cmd tea.Cmd
		m.booked, cmd = m.booked.Update(msg)

		return m, cmd
	}

	return m, nil
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.step {
	case stepFile:
		m.step = stepBank
		m.form = m.bankForm()

		return m, m.form.Init()

	case stepConflicts:
		m.step = stepFile
		m.newRows, m.conflicts, m.selected = nil, nil, nil

		return m, m.picker.Init()
	}

	return m, Back
}

func (m ImportModel) startReview(result *transaction.ImportResult) ImportModel {
	m.step = stepConflicts
	m.newRows = result.New
	m.conflicts = result.Conflicts
	m.selected = make(map[int]bool)

	items := make([]list.Item, len(m.conflicts))
	for i, c := range m.conflicts {
		items[i] = conflictItem{conflict: c, index: i}
	}

	width, height := 80, 20
	if m.Width > 0 {
		width, height = max(m.Width-4, 40), max(m.Height-8, 9)
	}

	m.review = list.New(items, conflictDelegate{selected: m.selected}, width, height)
	m.review.Title = fmt.Sprintf("%d rows already booked", len(m.conflicts))
	m.review.SetShowStatusBar(false)
	m.review.SetFilteringEnabled(false)
	m.review.SetShowHelp(false)

	return m
}

func (m ImportModel) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		idx := m.review.Index()
		m.selected[idx] = !m.selected[idx]

		return m, nil

	case "a":
		for i := range m.conflicts {
			m.selected[i] = true
		}

		return m, nil

	case "n":
		clear(m.selected)

		return m, nil

	case "enter":
		m.step = stepRunning

		return m, m.bookCmd()
	}

	var cmd tea.Cmd
	m.review, cmd = m.review.Update(msg)

	return m, cmd
}

// keptRows is every new row plus the conflicting rows the user ticked.
func (m ImportModel) keptRows() []transaction.CreateParams {
	rows := make([]transaction.CreateParams, 0, len(m.newRows)+len(m.selected))
	rows = append(rows, m.newRows...)

	for i, c := range m.conflicts {
		if m.selected[i] {
			rows = append(rows, c.Incoming)
		}
	}

	return rows
}

func (m ImportModel) View() string {
	var body string

	switch m.step {
	case stepBank:
		body = panel.Render(m.form.View())
	case stepFile:
		body = fmt.Sprintf("Pick a %s statement:\n\n%s",
			strings.ToUpper(string(*m.bank)), m.picker.View())
	case stepRunning:
		body = faint.Render("Importing " + filepath.Base(m.file) + "...")
	case stepConflicts:
		body = lipgloss.JoinVertical(lipgloss.Left,
			faint.Render(fmt.Sprintf("%d new rows will be booked. Tick the repeated rows to book them again.", len(m.newRows))),
			"",
			m.review.View(),
		)
	case stepDone:
		if m.err != nil {
			body = errText.Render("Import failed: " + m.err.Error())
			break
		}

		body = lipgloss.JoinVertical(lipgloss.Left,
			activeStyle(fmt.Sprintf("Booked %d transactions from %s", len(m.booked.Rows()), filepath.Base(m.file))),
			"",
			framed(m.booked),
		)
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(body)
}

func bookedRows(txs []*transaction.Transaction) []table.Row {
	rows := make([]table.Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, table.Row{FormatDate(tx.Date), FormatSigned(tx), tx.Title})
	}

	return rows
}

type importDoneMsg struct {
	result *transaction.ImportResult
	err    error
}

type bookDoneMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m ImportModel) importCmd(bank importer.Bank, path string) tea.Cmd {
	l, accountID := m.ledger, m.account.ID

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return importDoneMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		result, err := l.Importer.Import(ctx, importer.Params{
			OwnerID:   l.OwnerID,
			AccountID: accountID,
			Bank:      bank,
			File:      f,
		})

		return importDoneMsg{result: result, err: err}
	}
}

func (m ImportModel) bookCmd() tea.Cmd {
	l, accountID, rows := m.ledger, m.account.ID, m.keptRows()

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		txs, err := l.Importer.Book(ctx, importer.BookParams{
			OwnerID:   l.OwnerID,
			AccountID: accountID,
			Rows:      rows,
		})

		return bookDoneMsg{txs: txs, err: err}
	}
}

type conflictItem struct {
	conflict transaction.Conflict
	index    int
}

func (i conflictItem) Title() string       { return "" }
func (i conflictItem) Description() string { return "" }
func (i conflictItem) FilterValue() string { return "" }

// conflictDelegate draws a statement row above the transaction it repeats.
type conflictDelegate struct {
	selected map[int]bool
}

func (d conflictDelegate) Height() int                             { return 3 }
func (d conflictDelegate) Spacing() int                            { return 0 }
func (d conflictDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d conflictDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(conflictItem)
	if !ok {
		return
	}

	checkbox := "[ ]"
	if d.selected[item.index] {
		checkbox = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	incoming := item.conflict.Incoming
	existing := item.conflict.Existing

	line1 := fmt.Sprintf("%s%s %s  %10s  %s",
		cursor, checkbox,
		FormatDate(incoming.Date),
		formatSigned(incoming.Amount, incoming.Type),
		incoming.Notes,
	)

	line2 := faint.Render(fmt.Sprintf("      Booked: %s  %10s  %s [%s]",
		FormatDate(existing.Date),
		FormatSigned(existing),
		existing.Title,
		existing.Status,
	))

	fmt.Fprintf(w, "%s\n%s\n", line1, line2)
}
