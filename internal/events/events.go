package events

import (
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Event names dispatched on the table.
const (
	CellChange       = "cell:change"
	CellSaved        = "cell:saved"
	RowSaved         = "row:saved"
	RowAdded         = "row:added"
	RowRemoved       = "row:removed"
	RowRemoving      = "row:removing"
	SelectionChange  = "selection:change"
	SortChange       = "sort:change"
	FilterChange     = "filter:change"
	OrderChange      = "order:change"
	ValidationChange = "validation:change"
	ChoiceLoading    = "choice:loading"
)

// Change sources carried in Detail.Source.
const (
	SourceEdit           = "edit"
	SourceChoice         = "choice"
	SourceChoiceMultiple = "choice-multiple"
	SourceAutoSave       = "autoSave"
	SourceManual         = "manual"
	SourceColor          = "color"
	SourceDate           = "date"
)

// Event is a custom event dispatched on the table element.
type Event struct {
	Name string
	// Bubbles events also reach document-scope listeners.
	Bubbles bool
	Detail  Detail
}

// Detail carries enough context for a listener with no other state to update
// its own bookkeeping.
type Detail struct {
	EventID      string
	Cell         *table.Cell
	Row          *table.Row
	RowID        string
	ColumnID     string
	Value        string
	InitialValue string
	Source       string
	IsModified   bool
	Position     string
	Data         map[string]string
	Cells        []CellSnapshot
	// Extra holds event-specific payloads (selection ids, sort state, ...).
	Extra map[string]any
}

// CellSnapshot is one cell of a row:saved event.
type CellSnapshot struct {
	ColumnID     string
	Value        string
	InitialValue string
}

// New builds a bubbling event.
func New(name string, detail Detail) Event {
	return Event{Name: name, Bubbles: true, Detail: detail}
}

// Scoped builds a non-bubbling event.
func Scoped(name string, detail Detail) Event {
	return Event{Name: name, Bubbles: false, Detail: detail}
}

// ForCell fills the cell, row and column fields of a detail.
func ForCell(cell *table.Cell, source string) Detail {
	return Detail{
		Cell:         cell,
		Row:          cell.Row(),
		RowID:        cell.Row().ID(),
		ColumnID:     cell.Column().ID,
		Value:        cell.Value(),
		InitialValue: cell.InitialValue(),
		Source:       source,
	}
}
