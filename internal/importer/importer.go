// Package importer turns bank statement exports into booked transactions.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

var ErrUnknownBank = errors.New("unknown bank")

// Bank names a statement format, e.g. "cgd".
type Bank string

const (
	BankCGD Bank = "cgd"
)

// ParseBank normalizes user input such as " CGD " into a Bank.
func ParseBank(s string) (Bank, error) {
	b := Bank(strings.ToLower(strings.TrimSpace(s)))
	if b == "" {
		return "", fmt.Errorf("%w: bank is required", ErrUnknownBank)
	}

	return b, nil
}

// Parser turns a bank statement into paid transaction params.
// Title holds the raw statement text; owner and account are filled in by the Service.
type Parser interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}
