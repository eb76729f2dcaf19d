package ledger

import "strconv"

// EditSession governs inline editing of a single line item. At most one item
// is being edited at any time; beginning a new edit re-targets without
// requiring a cancel first.
type EditSession struct {
	table          *Table
	targetID       string
	stagedAmount   string
	stagedQuantity string
}

// NewEditSession creates an idle session bound to a table.
func NewEditSession(table *Table) *EditSession {
	return &EditSession{table: table}
}

// Editing reports whether an edit is in flight.
func (s *EditSession) Editing() bool {
	return s.targetID != ""
}

// Target returns the ID of the item being edited, if any.
func (s *EditSession) Target() (string, bool) {
	return s.targetID, s.targetID != ""
}

// Staged returns the staged amount and quantity inputs.
func (s *EditSession) Staged() (amount, quantity string) {
	return s.stagedAmount, s.stagedQuantity
}

// Begin starts editing the given item, staging its current values as input.
// A session already editing another item switches to the new target.
func (s *EditSession) Begin(id string) error {
	item, ok := s.table.Get(id)
	if !ok {
		return ErrNotFound
	}
	s.targetID = id
	s.stagedAmount = item.Amount.StringFixed(2)
	s.stagedQuantity = strconv.Itoa(item.Quantity)
	return nil
}

// Confirm validates the inputs and applies them to the target item. On
// invalid input the session stays in editing mode so the operator can fix
// the values; any other outcome returns the session to idle.
func (s *EditSession) Confirm(amount, quantity string) error {
	if s.targetID == "" {
		return ErrNotFound
	}
	if err := s.table.Update(s.targetID, amount, quantity); err != nil {
		if err == ErrInvalidInput {
			return err
		}
		// Target vanished out from under the edit; reset.
		s.reset()
		return err
	}
	s.reset()
	return nil
}

// Cancel discards staged input and returns to idle. The item is unchanged.
func (s *EditSession) Cancel() {
	s.reset()
}

func (s *EditSession) reset() {
	s.targetID = ""
	s.stagedAmount = ""
	s.stagedQuantity = ""
}
