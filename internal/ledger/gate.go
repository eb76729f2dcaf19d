package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the unit handed to the Writer once a page has been reconciled.
// It is immutable after construction.
type Record struct {
	DocumentName string
	PageNumber   int
	TotalAmount  decimal.Decimal
	Timestamp    time.Time
}

// Comparison is the advisory diff between the extracted total and the
// operator's verified amount. It never blocks a commit.
type Comparison struct {
	Match      bool            `json:"match"`
	Difference decimal.Decimal `json:"difference"`
}

// comparisonEpsilon is the tolerance below which the two totals are
// considered matching.
var comparisonEpsilon = decimal.NewFromFloat(0.01)

// NormalizeAmount parses an operator-entered currency string, stripping
// currency symbols and thousands separators. An unparsable value is an
// error; it is never coerced to zero.
func NormalizeAmount(value string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.ReplaceAll(cleaned, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, ErrInvalidAmount
	}
	return amount, nil
}

// CanCommit decides whether a reconciled record may be committed, producing
// the record on success. documentName and pageNumber describe the open page
// context; verified is the operator's manually verified amount as entered.
func CanCommit(documentName string, pageNumber int, verified string, now time.Time) (Record, error) {
	if strings.TrimSpace(verified) == "" {
		return Record{}, ErrMissingVerification
	}
	if documentName == "" || pageNumber < 1 {
		return Record{}, ErrMissingDocument
	}

	amount, err := NormalizeAmount(verified)
	if err != nil {
		return Record{}, err
	}

	return Record{
		DocumentName: documentName,
		PageNumber:   pageNumber,
		TotalAmount:  amount,
		Timestamp:    now,
	}, nil
}

// Compare reports whether the computed table total agrees with the verified
// amount within the advisory tolerance.
func Compare(calculated, verified decimal.Decimal) Comparison {
	difference := calculated.Sub(verified)
	return Comparison{
		Match:      difference.Abs().LessThan(comparisonEpsilon),
		Difference: difference,
	}
}
