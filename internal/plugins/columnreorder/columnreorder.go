// Package columnreorderplugin moves whole columns, header and cells
// together, and remembers the column order in the host storage.
package columnreorderplugin

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/net/html/atom"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/storage"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "columnreorder"

// StorageKind is the storage key suffix of the column order.
const StorageKind = "column-order"

// AttrOriginalIndex records a header's position in the document as loaded.
const AttrOriginalIndex = "data-original-index"

// ErrOutOfRange is returned for column positions outside the table.
var ErrOutOfRange = errors.New("column position out of range")

// Plugin is the column reorder plugin.
type Plugin struct {
	host plugin.Host
	log  *logger.Logger
	key  string
	// original holds the column ids in document order.
	original []string
	persist  bool
}

// New is the plugin factory. persist (default true) stores the order.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return &Plugin{persist: cfg.Bool("persist", true)}, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init numbers the headers and restores a stored order that still applies.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	p.key = storage.Key(host.Table().ID(), StorageKind)

	cols := host.Table().Columns()
	p.original = make([]string, len(cols))
	for i, col := range cols {
		p.original[i] = col.ID
		col.Header.SetAttr(AttrOriginalIndex, strconv.Itoa(i))
	}
	if p.persist {
		p.restore()
	}
	return nil
}

// Order returns the original indices of the columns in their current order.
func (p *Plugin) Order() []int {
	cols := p.host.Table().Columns()
	order := make([]int, len(cols))
	for i, col := range cols {
		order[i], _ = strconv.Atoi(col.Header.AttrOr(AttrOriginalIndex, "-1"))
	}
	return order
}

// MoveColumn moves the column at position from to position to, in the
// header and in every row. Plugins are refreshed once the current call
// returns.
func (p *Plugin) MoveColumn(ctx context.Context, from, to int) error {
	n := len(p.host.Table().Columns())
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("%w: %d -> %d of %d", ErrOutOfRange, from, to, n)
	}
	if from == to {
		return nil
	}

	perm := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if i != from {
			perm = append(perm, i)
		}
	}
	perm = append(perm[:to], append([]int{from}, perm[to:]...)...)
	p.permute(perm)
	p.save()

	p.host.Events().Dispatch(ctx, events.New(events.OrderChange, events.Detail{
		Extra: map[string]any{"kind": "columns", "from": from, "to": to, "columns": p.host.Table().ColumnIDs()},
	}))

	ctx = context.WithoutCancel(ctx)
	p.host.Defer(func() { p.host.RefreshPlugins(ctx) })
	return nil
}

// permute reorders the cells of every table row so that position i holds
// the cell previously at perm[i].
func (p *Plugin) permute(perm []int) {
	for _, tr := range p.host.Table().Element().FindAll(atom.Tr) {
		cells := cellsOf(tr)
		if len(cells) != len(perm) {
			continue
		}
		for _, c := range cells {
			c.Remove()
		}
		for _, i := range perm {
			tr.AppendChild(cells[i])
		}
	}
}

func cellsOf(tr *dom.Element) []*dom.Element {
	var out []*dom.Element
	for _, c := range tr.Children() {
		if c.Is(atom.Td) || c.Is(atom.Th) {
			out = append(out, c)
		}
	}
	return out
}

func (p *Plugin) save() {
	if !p.persist {
		return
	}
	snap := storage.Snapshot{Order: p.Order(), Columns: p.original}
	if err := storage.SaveSnapshot(p.host.Storage(), p.key, snap); err != nil {
		p.log.Error(err, "failed to store column order")
	}
}

func (p *Plugin) restore() {
	snap, ok, err := storage.LoadSnapshot(p.host.Storage(), p.key)
	if err != nil {
		p.log.Error(err, "failed to load column order")
		return
	}
	if !ok {
		return
	}
	if !snap.Matches(p.original) || !isPermutation(snap.Order, len(p.original)) {
		p.log.Debug("stored column order does not match the table")
		_ = p.host.Storage().Delete(p.key)
		return
	}
	p.permute(snap.Order)
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, i := range order {
		if i < 0 || i >= n || seen[i] {
			return false
		}
		seen[i] = true
	}
	return true
}

// MenuItems offers moving the cell's column one step.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	if cell == nil {
		return nil
	}
	pos, n := cell.Column().Index, len(p.host.Table().Columns())
	var items []plugin.MenuItem
	if pos > 0 {
		items = append(items, plugin.MenuItem{ID: "columnreorder:left", Label: "Move column left", Action: func(ctx context.Context, _ *table.Cell) error {
			return p.MoveColumn(ctx, pos, pos-1)
		}})
	}
	if pos < n-1 {
		items = append(items, plugin.MenuItem{ID: "columnreorder:right", Label: "Move column right", Action: func(ctx context.Context, _ *table.Cell) error {
			return p.MoveColumn(ctx, pos, pos+1)
		}})
	}
	return items
}
