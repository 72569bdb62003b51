// Package reorderplugin lets rows be moved and remembers the order in the
// host storage. A stored order is only restored when it was taken against
// the same columns and the same rows.
package reorderplugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/storage"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "reorder"

// StorageKind is the storage key suffix of the row order.
const StorageKind = "row-order"

// AttrOriginalIndex records a row's position in the document as loaded.
const AttrOriginalIndex = "data-original-index"

// ErrOutOfRange is returned for row positions outside the table.
var ErrOutOfRange = errors.New("row position out of range")

// Plugin is the row reorder plugin.
type Plugin struct {
	host    plugin.Host
	log     *logger.Logger
	key     string
	next    int
	persist bool
	subs    events.Subscriptions
}

// New is the plugin factory. persist (default true) stores the order.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return &Plugin{persist: cfg.Bool("persist", true)}, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init numbers the rows and restores a stored order that still applies.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	p.key = storage.Key(host.Table().ID(), StorageKind)

	for _, row := range host.Table().Rows() {
		p.number(row)
	}
	if p.persist {
		p.restore()
	}

	p.subs.Add(host.Events().Subscribe(events.RowAdded, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Row != nil {
			p.number(ev.Detail.Row)
			p.save()
		}
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.RowRemoved, func(context.Context, events.Event) error {
		p.save()
		return nil
	}))
	return nil
}

// Destroy unsubscribes.
func (p *Plugin) Destroy() error {
	p.subs.UnsubscribeAll()
	return nil
}

func (p *Plugin) number(row *table.Row) {
	if idx, ok := originalIndex(row); ok {
		if idx >= p.next {
			p.next = idx + 1
		}
		return
	}
	row.Element().SetAttr(AttrOriginalIndex, strconv.Itoa(p.next))
	p.next++
}

func originalIndex(row *table.Row) (int, bool) {
	raw, ok := row.Element().Attr(AttrOriginalIndex)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}

// Order returns the original indices of the rows in their current order.
func (p *Plugin) Order() []int {
	rows := p.host.Table().Rows()
	order := make([]int, 0, len(rows))
	for _, row := range rows {
		idx, _ := originalIndex(row)
		order = append(order, idx)
	}
	return order
}

// MoveRow moves the row at position from to position to. Positions count
// body rows from 0. Plugins are refreshed once the current call returns.
func (p *Plugin) MoveRow(ctx context.Context, from, to int) error {
	rows := p.host.Table().Rows()
	if from < 0 || from >= len(rows) || to < 0 || to >= len(rows) {
		return fmt.Errorf("%w: %d -> %d of %d", ErrOutOfRange, from, to, len(rows))
	}
	if from == to {
		return nil
	}

	moved := rows[from]
	rest := append(append([]*table.Row(nil), rows[:from]...), rows[from+1:]...)
	ordered := append(append(append([]*table.Row(nil), rest[:to]...), moved), rest[to:]...)
	p.arrange(ordered)
	p.save()

	p.host.Events().Dispatch(ctx, events.New(events.OrderChange, events.Detail{
		Row:   moved,
		RowID: moved.ID(),
		Extra: map[string]any{"kind": "rows", "from": from, "to": to, "order": p.Order()},
	}))

	ctx = context.WithoutCancel(ctx)
	p.host.Defer(func() { p.host.RefreshPlugins(ctx) })
	return nil
}

// Reset restores the document order and forgets the stored one.
func (p *Plugin) Reset(ctx context.Context) error {
	rows := p.host.Table().Rows()
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := originalIndex(rows[i])
		b, _ := originalIndex(rows[j])
		return a < b
	})
	p.arrange(rows)
	if err := p.host.Storage().Delete(p.key); err != nil {
		return fmt.Errorf("forget row order: %w", err)
	}
	p.host.Events().Dispatch(ctx, events.New(events.OrderChange, events.Detail{
		Extra: map[string]any{"kind": "rows", "order": p.Order()},
	}))
	ctx = context.WithoutCancel(ctx)
	p.host.Defer(func() { p.host.RefreshPlugins(ctx) })
	return nil
}

func (p *Plugin) arrange(rows []*table.Row) {
	body := p.host.Table().Body()
	for _, row := range rows {
		row.Element().Remove()
		body.AppendChild(row.Element())
	}
}

func (p *Plugin) save() {
	if !p.persist {
		return
	}
	snap := storage.Snapshot{Order: p.Order(), Columns: p.columns()}
	if err := storage.SaveSnapshot(p.host.Storage(), p.key, snap); err != nil {
		p.log.Error(err, "failed to store row order")
	}
}

// columns returns the sorted column ids, so moving columns does not
// invalidate the row order.
func (p *Plugin) columns() []string {
	ids := p.host.Table().ColumnIDs()
	sort.Strings(ids)
	return ids
}

func (p *Plugin) restore() {
	snap, ok, err := storage.LoadSnapshot(p.host.Storage(), p.key)
	if err != nil {
		p.log.Error(err, "failed to load row order")
		return
	}
	if !ok {
		return
	}
	if !snap.Matches(p.columns()) {
		p.log.Debug("stored row order was taken against other columns")
		_ = p.host.Storage().Delete(p.key)
		return
	}

	byIndex := make(map[int]*table.Row)
	for _, row := range p.host.Table().Rows() {
		idx, _ := originalIndex(row)
		byIndex[idx] = row
	}
	if len(snap.Order) != len(byIndex) {
		p.log.Debug("stored row order does not match the rows")
		return
	}
	ordered := make([]*table.Row, 0, len(snap.Order))
	for _, idx := range snap.Order {
		row, ok := byIndex[idx]
		if !ok {
			p.log.Debug("stored row order does not match the rows")
			return
		}
		ordered = append(ordered, row)
		delete(byIndex, idx)
	}
	p.arrange(ordered)
}

// MenuItems offers moving the cell's row one step.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	if cell == nil {
		return nil
	}
	rows := p.host.Table().Rows()
	pos := -1
	for i, r := range rows {
		if r.Element().Same(cell.Row().Element()) {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil
	}
	var items []plugin.MenuItem
	if pos > 0 {
		items = append(items, plugin.MenuItem{ID: "reorder:up", Label: "Move row up", Action: func(ctx context.Context, _ *table.Cell) error {
			return p.MoveRow(ctx, pos, pos-1)
		}})
	}
	if pos < len(rows)-1 {
		items = append(items, plugin.MenuItem{ID: "reorder:down", Label: "Move row down", Action: func(ctx context.Context, _ *table.Cell) error {
			return p.MoveRow(ctx, pos, pos+1)
		}})
	}
	return items
}
