package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one toll entry on the current page. Subtotal is always
// Amount * Quantity, recomputed on every change.
type LineItem struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// ExtractedLine is a toll proposal coming back from extraction.
type ExtractedLine struct {
	Amount   float64 `json:"amount"`
	Quantity int     `json:"quantity"`
}

// IDGenerator generates opaque row identifiers for line items.
type IDGenerator interface {
	Generate() string
}

// sequentialIDGenerator numbers rows within one table instance. IDs stay
// unique for the table's lifetime even after deletions.
type sequentialIDGenerator struct {
	n int
}

func (g *sequentialIDGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("item-%d", g.n)
}

// Table holds the itemized toll entries for the page being worked on.
// It is not persisted; it lives only as long as the page view.
type Table struct {
	items       []LineItem
	idGenerator IDGenerator
}

// NewTable creates an empty Table with the default ID generator.
func NewTable() *Table {
	return &Table{idGenerator: &sequentialIDGenerator{}}
}

// NewTableWithIDGenerator creates a Table with a custom ID generator for testing.
func NewTableWithIDGenerator(idGen IDGenerator) *Table {
	return &Table{idGenerator: idGen}
}

// parseAmount parses a non-negative decimal amount.
func parseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, ErrInvalidInput
	}
	if amount.IsNegative() {
		return decimal.Decimal{}, ErrInvalidInput
	}
	return amount, nil
}

// parseQuantity parses a positive integer quantity.
func parseQuantity(s string) (int, error) {
	quantity, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || quantity <= 0 {
		return 0, ErrInvalidInput
	}
	return quantity, nil
}

// Add validates and appends a new line item, returning its ID. On invalid
// input nothing is inserted.
func (t *Table) Add(amount, quantity string) (string, error) {
	amt, err := parseAmount(amount)
	if err != nil {
		return "", err
	}
	qty, err := parseQuantity(quantity)
	if err != nil {
		return "", err
	}

	item := LineItem{
		ID:       t.idGenerator.Generate(),
		Amount:   amt,
		Quantity: qty,
		Subtotal: amt.Mul(decimal.NewFromInt(int64(qty))),
	}
	t.items = append(t.items, item)
	return item.ID, nil
}

// Update overwrites an existing line item in place, recomputing its subtotal.
func (t *Table) Update(id, amount, quantity string) error {
	amt, err := parseAmount(amount)
	if err != nil {
		return err
	}
	qty, err := parseQuantity(quantity)
	if err != nil {
		return err
	}

	for i := range t.items {
		if t.items[i].ID == id {
			t.items[i].Amount = amt
			t.items[i].Quantity = qty
			t.items[i].Subtotal = amt.Mul(decimal.NewFromInt(int64(qty)))
			return nil
		}
	}
	return ErrNotFound
}

// Delete removes the given line items. Unknown IDs are ignored.
func (t *Table) Delete(ids ...string) {
	if len(ids) == 0 {
		return
	}
	doomed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		doomed[id] = struct{}{}
	}

	kept := t.items[:0]
	for _, item := range t.items {
		if _, ok := doomed[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	t.items = kept
}

// Clear empties the table.
func (t *Table) Clear() {
	t.items = nil
}

// Get returns the line item with the given ID.
func (t *Table) Get(id string) (LineItem, bool) {
	for _, item := range t.items {
		if item.ID == id {
			return item, true
		}
	}
	return LineItem{}, false
}

// Items returns a copy of the current line items in insertion order.
func (t *Table) Items() []LineItem {
	items := make([]LineItem, len(t.items))
	copy(items, t.items)
	return items
}

// Len returns the number of line items.
func (t *Table) Len() int {
	return len(t.items)
}

// Total returns the exact sum of all subtotals, zero for an empty table.
func (t *Table) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range t.items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// ReplaceAll clears the table and bulk-inserts extraction results, returning
// the new total. Lines with a negative amount or non-positive quantity are
// skipped.
func (t *Table) ReplaceAll(lines []ExtractedLine) decimal.Decimal {
	t.Clear()
	for _, line := range lines {
		if line.Amount < 0 || line.Quantity <= 0 {
			continue
		}
		amt := decimal.NewFromFloat(line.Amount)
		item := LineItem{
			ID:       t.idGenerator.Generate(),
			Amount:   amt,
			Quantity: line.Quantity,
			Subtotal: amt.Mul(decimal.NewFromInt(int64(line.Quantity))),
		}
		t.items = append(t.items, item)
	}
	return t.Total()
}
