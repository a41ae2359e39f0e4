package cgd

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrJamesThe3rd/tally/internal/importer/charset"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

const dateLayout = "02-01-2006"

var (
	ErrUnrecognizedFormat = errors.New("no matching CGD format")
	ErrMalformedRow       = errors.New("malformed row")
)

// Parser reads CGD CSV exports into paid transaction params. Title carries the
// raw statement text; owner and account are left for the caller.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse skips the preamble CGD puts above the header, then reads rows until EOF.
// Rows without a valid date or a non-zero amount (balances, footers) are dropped.
func (p *Parser) Parse(r io.Reader) ([]transaction.CreateParams, error) {
	utf8r, _, err := charset.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("detecting charset: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	cols, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	var out []transaction.CreateParams

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}

		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}

		date, err := time.Parse(dateLayout, cell(row, cols.date))
		if err != nil {
			continue
		}

		amount, typ, ok := cols.amount(row)
		if !ok {
			continue
		}

		title := cell(row, cols.title)
		if title == "" {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: missing description", ErrMalformedRow, line)
		}

		out = append(out, transaction.CreateParams{
			Title:  title,
			Amount: amount,
			Type:   typ,
			Status: transaction.StatusPaid,
			Date:   date,
		})
	}
}

func readHeader(reader *csv.Reader) (columns, error) {
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return columns{}, fmt.Errorf("%w: expected columns for conta, extrato or cartão", ErrUnrecognizedFormat)
		}

		if err != nil {
			return columns{}, fmt.Errorf("reading csv: %w", err)
		}

		if cols, ok := detect(row); ok {
			return cols, nil
		}
	}
}
