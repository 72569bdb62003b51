// Package table is the view of a document <table> that the host and plugins
// share: header columns with their opt-in markers, rows, cells, and the
// reflection of store state into data attributes.
package table

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/model"
)

// Attribute names that make up the persisted state contract.
const (
	AttrValue        = "data-value"
	AttrInitialValue = "data-initial-value"
	AttrPlugin       = "data-plugin"
	AttrModified     = "data-modified"
	AttrDefault      = "data-default"
	AttrColumn       = "data-column"
	AttrRowID        = "id"
	// AttrUI marks plugin decorations that are not part of a cell's text.
	AttrUI = "data-ui"

	ClassModified = "modified"
)

// Options tune how the table wraps cell and header content.
type Options struct {
	CellWrapperClass string
	HeadWrapperClass string
}

// Table wraps a table element and the store that backs it.
type Table struct {
	el      *dom.Element
	store   *model.Store
	opts    Options
	nextRow int
}

// New returns a view over el. el must be a <table>.
func New(el *dom.Element, store *model.Store, opts Options) *Table {
	return &Table{el: el, store: store, opts: opts}
}

// Element returns the table element.
func (t *Table) Element() *dom.Element { return t.el }

// ID returns the table element id.
func (t *Table) ID() string { return t.el.ID() }

// Store returns the backing state store.
func (t *Table) Store() *model.Store { return t.store }

// Column is one header cell.
type Column struct {
	ID     string
	Index  int
	Label  string
	Header *dom.Element
}

// Marker returns the value of the th-<name> attribute.
func (c Column) Marker(name string) (string, bool) {
	return c.Header.Attr("th-" + name)
}

// Has reports whether the column opted into the named behavior.
func (c Column) Has(name string) bool {
	_, ok := c.Marker(name)
	return ok
}

// Default returns the header-declared default for new rows.
func (c Column) Default() string {
	return c.Header.AttrOr(AttrDefault, "")
}

// Head returns the <thead> element, or nil.
func (t *Table) Head() *dom.Element {
	return t.el.FirstChildByTag(atom.Thead)
}

// HeaderRow returns the row carrying the column headers.
func (t *Table) HeaderRow() *dom.Element {
	if head := t.Head(); head != nil {
		if tr := head.FirstChildByTag(atom.Tr); tr != nil {
			return tr
		}
	}
	for _, tr := range t.el.FindAll(atom.Tr) {
		if len(tr.ChildrenByTag(atom.Th)) > 0 {
			return tr
		}
	}
	return nil
}

// Columns scans the header row. Column ids come from id, data-column, or the
// normalized header label, in that order.
func (t *Table) Columns() []Column {
	tr := t.HeaderRow()
	if tr == nil {
		return nil
	}
	ths := tr.ChildrenByTag(atom.Th)
	cols := make([]Column, 0, len(ths))
	for i, th := range ths {
		label := t.headerLabel(th)
		cols = append(cols, Column{
			ID:     columnID(th, label, i),
			Index:  i,
			Label:  label,
			Header: th,
		})
	}
	return cols
}

// Column looks up a column by id.
func (t *Table) Column(id string) (Column, bool) {
	for _, c := range t.Columns() {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnsWith returns the columns carrying the th-<marker> attribute.
func (t *Table) ColumnsWith(marker string) []Column {
	var out []Column
	for _, c := range t.Columns() {
		if c.Has(marker) {
			out = append(out, c)
		}
	}
	return out
}

// ColumnIDs returns the ids of all columns in display order.
func (t *Table) ColumnIDs() []string {
	cols := t.Columns()
	ids := make([]string, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	return ids
}

// Body returns the first <tbody>, creating one when the table has none.
func (t *Table) Body() *dom.Element {
	if body := t.el.FirstChildByTag(atom.Tbody); body != nil {
		return body
	}
	body := dom.NewElement("tbody")
	t.el.AppendChild(body)
	return body
}

// Rows returns the body rows in document order.
func (t *Table) Rows() []*Row {
	var rows []*Row
	for _, body := range t.el.ChildrenByTag(atom.Tbody) {
		for _, tr := range body.ChildrenByTag(atom.Tr) {
			rows = append(rows, &Row{el: tr, table: t})
		}
	}
	return rows
}

// Row finds a body row by id, or nil.
func (t *Table) Row(id string) *Row {
	for _, r := range t.Rows() {
		if r.ID() == id {
			return r
		}
	}
	return nil
}

// RowOf wraps an existing <tr> element.
func (t *Table) RowOf(tr *dom.Element) *Row {
	return &Row{el: tr, table: t}
}

// Cell resolves a cell by row and column id, or nil.
func (t *Table) Cell(rowID, columnID string) *Cell {
	r := t.Row(rowID)
	if r == nil {
		return nil
	}
	return r.Cell(columnID)
}

// NextRowID returns a synthetic row id not used by any row of the table.
func (t *Table) NextRowID() string {
	taken := make(map[string]struct{})
	for _, tr := range t.el.FindAll(atom.Tr) {
		if id := tr.ID(); id != "" {
			taken[id] = struct{}{}
		}
	}
	for {
		t.nextRow++
		id := "row-" + strconv.Itoa(t.nextRow)
		if _, ok := taken[id]; !ok {
			return id
		}
	}
}

// PinColumns stamps data-column on every header without an id or
// data-column, so column ids stay unique and survive header moves. Ids
// derived from the same label get a numeric suffix (qty, qty_2).
func (t *Table) PinColumns() {
	tr := t.HeaderRow()
	if tr == nil {
		return
	}
	ths := tr.ChildrenByTag(atom.Th)
	taken := make(map[string]struct{}, len(ths))
	for _, th := range ths {
		if id := pinnedID(th); id != "" {
			taken[id] = struct{}{}
		}
	}
	for i, th := range ths {
		if pinnedID(th) != "" {
			continue
		}
		base := columnID(th, t.headerLabel(th), i)
		id := base
		for n := 2; ; n++ {
			if _, ok := taken[id]; !ok {
				break
			}
			id = base + "_" + strconv.Itoa(n)
		}
		taken[id] = struct{}{}
		th.SetAttr(AttrColumn, id)
	}
}

// Snapshot pins column ids, assigns missing row ids and seeds every body
// cell's value and initial value from its current text. It is the clean
// baseline used for modification tracking.
func (t *Table) Snapshot() {
	t.PinColumns()
	if t.opts.HeadWrapperClass != "" {
		for _, c := range t.Columns() {
			wrapContent(c.Header, t.opts.HeadWrapperClass)
		}
	}
	for _, r := range t.Rows() {
		if r.ID() == "" {
			r.el.SetAttr(AttrRowID, t.NextRowID())
		}
		for _, c := range r.Cells() {
			if t.opts.CellWrapperClass != "" {
				wrapContent(c.el, t.opts.CellWrapperClass)
			}
			t.store.Seed(c.Key(), c.Display())
			t.Reflect(c)
		}
		t.ReflectRow(r)
	}
}

// Reflect writes the cell's store state into its attributes.
func (t *Table) Reflect(c *Cell) {
	st, ok := t.store.Get(c.Key())
	if !ok {
		return
	}
	c.el.SetAttr(AttrValue, st.Value)
	c.el.SetAttr(AttrInitialValue, st.InitialValue)
	if st.Owner != "" {
		c.el.SetAttr(AttrPlugin, st.Owner)
	} else {
		c.el.RemoveAttr(AttrPlugin)
	}
	if st.Flagged {
		c.el.SetAttr(AttrModified, "true")
	} else {
		c.el.RemoveAttr(AttrModified)
	}
}

// ReflectRow writes the derived row state into the row's class and attribute.
func (t *Table) ReflectRow(r *Row) {
	modified := t.store.RowModified(r.ID())
	r.el.ToggleClass(ClassModified, modified)
	if modified {
		r.el.SetAttr(AttrModified, "true")
	} else {
		r.el.RemoveAttr(AttrModified)
	}
}

// NewRow builds a detached row with one cell per column. values are keyed by
// column id; absent keys fall back to the header default.
func (t *Table) NewRow(id string, values map[string]string) *Row {
	tr := dom.NewElement("tr")
	tr.SetAttr(AttrRowID, id)
	row := &Row{el: tr, table: t}
	for _, col := range t.Columns() {
		td := dom.NewElement("td")
		value, ok := values[col.ID]
		if !ok {
			value = col.Default()
		}
		if t.opts.CellWrapperClass != "" {
			wrapper := dom.NewElement("div")
			wrapper.AddClass(t.opts.CellWrapperClass)
			wrapper.SetText(value)
			td.AppendChild(wrapper)
		} else {
			td.SetText(value)
		}
		tr.AppendChild(td)
	}
	return row
}

func (t *Table) headerLabel(th *dom.Element) string {
	if t.opts.HeadWrapperClass != "" {
		if w := th.FindByClass(t.opts.HeadWrapperClass); w != nil {
			return w.Text()
		}
	}
	return th.Text()
}

func pinnedID(th *dom.Element) string {
	if id := th.ID(); id != "" {
		return id
	}
	return th.AttrOr(AttrColumn, "")
}

func columnID(th *dom.Element, label string, index int) string {
	if id := pinnedID(th); id != "" {
		return id
	}
	if norm := normalize(label); norm != "" {
		return norm
	}
	return fmt.Sprintf("col-%d", index)
}

func normalize(label string) string {
	fields := strings.Fields(strings.ToLower(label))
	return strings.Join(fields, "_")
}

func wrapContent(el *dom.Element, class string) {
	if el.FindByClass(class) != nil {
		return
	}
	text := el.TextSkipping(AttrUI)
	el.ReplaceText("", AttrUI)
	wrapper := dom.NewElement("div")
	wrapper.AddClass(class)
	wrapper.SetText(text)
	el.PrependChild(wrapper)
}
