package table

import (
	"golang.org/x/net/html/atom"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/model"
)

// Row is a body row.
type Row struct {
	el    *dom.Element
	table *Table
}

// ID returns the row id.
func (r *Row) ID() string { return r.el.ID() }

// Element returns the <tr> element.
func (r *Row) Element() *dom.Element { return r.el }

// Table returns the owning table view.
func (r *Row) Table() *Table { return r.table }

// Attached reports whether the row is still part of the document.
func (r *Row) Attached() bool { return r.el.Attached() }

// Cells pairs the row's <td> elements with the header columns by position.
func (r *Row) Cells() []*Cell {
	cols := r.table.Columns()
	tds := r.el.ChildrenByTag(atom.Td)
	n := len(tds)
	if len(cols) < n {
		n = len(cols)
	}
	cells := make([]*Cell, 0, n)
	for i := 0; i < n; i++ {
		cells = append(cells, &Cell{el: tds[i], row: r, col: cols[i]})
	}
	return cells
}

// Cell returns the cell in the given column, or nil.
func (r *Row) Cell(columnID string) *Cell {
	for _, c := range r.Cells() {
		if c.col.ID == columnID {
			return c
		}
	}
	return nil
}

// Data returns the current value of every cell keyed by column id.
func (r *Row) Data() map[string]string {
	data := make(map[string]string)
	for _, c := range r.Cells() {
		data[c.col.ID] = c.Value()
	}
	return data
}

// Cell is one body cell.
type Cell struct {
	el  *dom.Element
	row *Row
	col Column
}

// Key returns the store key of the cell.
func (c *Cell) Key() model.CellKey {
	return model.CellKey{RowID: c.row.ID(), ColumnID: c.col.ID}
}

// Element returns the <td> element.
func (c *Cell) Element() *dom.Element { return c.el }

// Row returns the owning row.
func (c *Cell) Row() *Row { return c.row }

// Column returns the header column of the cell.
func (c *Cell) Column() Column { return c.col }

// Value returns the logical value from the store, falling back to the
// displayed text for cells the store does not track.
func (c *Cell) Value() string {
	if st, ok := c.row.table.store.Get(c.Key()); ok {
		return st.Value
	}
	return c.Display()
}

// InitialValue returns the saved baseline value.
func (c *Cell) InitialValue() string {
	if st, ok := c.row.table.store.Get(c.Key()); ok {
		return st.InitialValue
	}
	return c.Display()
}

// Content returns the element holding the displayed text: the cell wrapper
// when one is configured, the cell otherwise.
func (c *Cell) Content() *dom.Element {
	if class := c.row.table.opts.CellWrapperClass; class != "" {
		if w := c.el.FindByClass(class); w != nil {
			return w
		}
	}
	return c.el
}

// Display returns the displayed text, ignoring UI decorations.
func (c *Cell) Display() string {
	return c.Content().TextSkipping(AttrUI)
}

// SetDisplay replaces the displayed text and keeps UI decorations.
func (c *Cell) SetDisplay(text string) {
	c.Content().ReplaceText(text, AttrUI)
}

// Decorate appends a UI element (message, button, swatch) to the cell. The
// element is marked so it never counts as cell text.
func (c *Cell) Decorate(el *dom.Element) {
	el.SetAttr(AttrUI, "")
	c.el.AppendChild(el)
}
