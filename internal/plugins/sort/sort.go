// Package sortplugin orders table rows by th-sort columns.
package sortplugin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "sort"

// Marker is the header attribute opting a column in.
const Marker = "sort"

// AttrSort holds the sort direction on the active header.
const AttrSort = "data-sort"

// Direction is a sort direction. None restores the document order.
type Direction string

const (
	None Direction = ""
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var (
	// ErrNotSortable is returned for columns without th-sort.
	ErrNotSortable = errors.New("column is not sortable")
	// ErrInvalidDirection is returned for unknown directions.
	ErrInvalidDirection = errors.New("invalid sort direction")
)

// Plugin is the sort plugin.
type Plugin struct {
	host      plugin.Host
	log       *logger.Logger
	column    string
	direction Direction
	// natural is the document order of row ids, used to undo sorting.
	natural []string
	subs    events.Subscriptions
}

// New is the plugin factory.
func New(plugin.Config) (plugin.Plugin, error) {
	return &Plugin{}, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init records the document order of the rows.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	p.natural = p.rowIDs()

	p.subs.Add(host.Events().Subscribe(events.RowAdded, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Position == "start" {
			p.natural = append([]string{ev.Detail.RowID}, p.natural...)
		} else {
			p.natural = append(p.natural, ev.Detail.RowID)
		}
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.OrderChange, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Extra["kind"] != "rows" {
			return nil
		}
		p.natural = p.rowIDs()
		p.column, p.direction = "", None
		p.syncHeaders()
		return nil
	}))
	return nil
}

// Refresh re-applies the active sort, placing rows added since the last sort.
func (p *Plugin) Refresh(context.Context) error {
	p.track()
	if p.direction != None {
		p.apply()
	}
	return nil
}

// Destroy unsubscribes.
func (p *Plugin) Destroy() error {
	p.subs.UnsubscribeAll()
	return nil
}

// State returns the active column and direction.
func (p *Plugin) State() (string, Direction) {
	return p.column, p.direction
}

// SortBy orders rows by column. None restores the document order.
func (p *Plugin) SortBy(ctx context.Context, column string, dir Direction) error {
	if dir != None && dir != Asc && dir != Desc {
		return fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	col, ok := p.host.Table().Column(column)
	if !ok || !col.Has(Marker) {
		return fmt.Errorf("%w: %s", ErrNotSortable, column)
	}

	p.track()
	p.column, p.direction = col.ID, dir
	if dir == None {
		p.column = ""
	}
	p.apply()

	p.host.Events().Dispatch(ctx, events.New(events.SortChange, events.Detail{
		ColumnID: col.ID,
		Extra:    map[string]any{"column": col.ID, "direction": string(dir)},
	}))
	return nil
}

// Toggle cycles column through ascending, descending and unsorted.
func (p *Plugin) Toggle(ctx context.Context, column string) error {
	next := Asc
	if p.column == column {
		switch p.direction {
		case Asc:
			next = Desc
		case Desc:
			next = None
		}
	}
	return p.SortBy(ctx, column, next)
}

func (p *Plugin) rowIDs() []string {
	rows := p.host.Table().Rows()
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID()
	}
	return ids
}

// track drops removed rows from the natural order and appends rows it has
// not seen.
func (p *Plugin) track() {
	live := make(map[string]bool)
	for _, id := range p.rowIDs() {
		live[id] = true
	}
	kept := p.natural[:0]
	known := make(map[string]bool)
	for _, id := range p.natural {
		if live[id] && !known[id] {
			kept = append(kept, id)
			known[id] = true
		}
	}
	for _, id := range p.rowIDs() {
		if !known[id] {
			kept = append(kept, id)
		}
	}
	p.natural = kept
}

func (p *Plugin) apply() {
	t := p.host.Table()
	rank := make(map[string]int, len(p.natural))
	for i, id := range p.natural {
		rank[id] = i
	}
	rows := t.Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		if p.direction != None {
			a, b := rows[i].Cell(p.column), rows[j].Cell(p.column)
			if a != nil && b != nil {
				c := Compare(a.Value(), b.Value())
				if p.direction == Desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
		}
		return rank[rows[i].ID()] < rank[rows[j].ID()]
	})

	body := t.Body()
	for _, r := range rows {
		r.Element().Remove()
		body.AppendChild(r.Element())
	}
	p.syncHeaders()
}

func (p *Plugin) syncHeaders() {
	for _, col := range p.host.Table().Columns() {
		if col.ID == p.column && p.direction != None {
			col.Header.SetAttr(AttrSort, string(p.direction))
		} else {
			col.Header.RemoveAttr(AttrSort)
		}
	}
}

// Compare orders two cell values: numerically when both are numbers,
// case-insensitively otherwise. Empty values sort first.
func Compare(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	x, okA := number(a)
	y, okB := number(b)
	if okA && okB {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// number parses s as a float. NaN has no order and counts as text.
func number(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// MenuItems offers sorting by the cell's column.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	if cell == nil || !cell.Column().Has(Marker) {
		return nil
	}
	column := cell.Column().ID
	return []plugin.MenuItem{
		{ID: "sort:asc", Label: "Sort ascending", Action: func(ctx context.Context, _ *table.Cell) error {
			return p.SortBy(ctx, column, Asc)
		}},
		{ID: "sort:desc", Label: "Sort descending", Action: func(ctx context.Context, _ *table.Cell) error {
			return p.SortBy(ctx, column, Desc)
		}},
		{ID: "sort:none", Label: "Clear sort", Action: func(ctx context.Context, _ *table.Cell) error {
			return p.SortBy(ctx, column, None)
		}},
	}
}
