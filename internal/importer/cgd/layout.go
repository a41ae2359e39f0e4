package cgd

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// layout is one of the CSV shapes CGD exports: account movements, statements and
// card statements differ in header names and in how the amount is laid out.
type layout struct {
	name   string
	date   string
	title  string
	signed string // one signed amount column
	debit  string // or separate debit/credit columns
	credit string
}

// Ordered most specific first.
var layouts = []layout{
	{name: "cartão", date: "Data", title: "Descrição", debit: "Débito", credit: "Crédito"},
	{name: "extrato", date: "Data mov.", title: "Descrição", signed: "Movimento"},
	{name: "conta", date: "Data mov.", title: "Descrição", signed: "Montante"},
}

// columns resolves a layout against one header row.
type columns struct {
	layout *layout
	date   int
	title  int
	signed int
	debit  int
	credit int
}

// bind reports whether header carries every column l needs.
func (l *layout) bind(header []string) (columns, bool) {
	pos := make(map[string]int, len(header))
	for i, cell := range header {
		if name := strings.TrimSpace(cell); name != "" {
			pos[name] = i
		}
	}

	find := func(name string) (int, bool) {
		if name == "" {
			return -1, true
		}

		i, ok := pos[name]

		return i, ok
	}

	c := columns{layout: l}

	var ok [5]bool
	c.date, ok[0] = find(l.date)
	c.title, ok[1] = find(l.title)
	c.signed, ok[2] = find(l.signed)
	c.debit, ok[3] = find(l.debit)
	c.credit, ok[4] = find(l.credit)

	for _, found := range ok {
		if !found {
			return columns{}, false
		}
	}

	return c, true
}

func detect(header []string) (columns, bool) {
	for i := range layouts {
		if c, ok := layouts[i].bind(header); ok {
			return c, true
		}
	}

	return columns{}, false
}

// amount returns the unsigned amount and direction of a row, or false when the
// row carries no money (blank or zero cells, card statement footers).
// A signed column is negative for expenses. With split columns debit wins.
func (c columns) amount(row []string) (decimal.Decimal, transaction.Type, bool) {
	if c.signed >= 0 {
		d, ok := amountAt(row, c.signed)
		switch {
		case !ok:
			return decimal.Zero, "", false
		case d.IsNegative():
			return d.Neg(), transaction.TypeExpense, true
		default:
			return d, transaction.TypeIncome, true
		}
	}

	if d, ok := amountAt(row, c.debit); ok {
		return d.Abs(), transaction.TypeExpense, true
	}

	if d, ok := amountAt(row, c.credit); ok {
		return d.Abs(), transaction.TypeIncome, true
	}

	return decimal.Zero, "", false
}

func amountAt(row []string, idx int) (decimal.Decimal, bool) {
	s := cell(row, idx)
	if s == "" {
		return decimal.Zero, false
	}

	d, err := parseEuropeanAmount(s)
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}

	return d, true
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
