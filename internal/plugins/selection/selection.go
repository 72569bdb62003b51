// Package selectionplugin tracks selected rows.
package selectionplugin

import (
	"context"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "selection"

// ClassSelected marks selected rows.
const ClassSelected = "selected"

// Plugin is the selection plugin.
type Plugin struct {
	host     plugin.Host
	multiple bool
	selected map[string]bool
	subs     events.Subscriptions
}

// New is the plugin factory. The multiple option (default true) allows more
// than one selected row.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return &Plugin{
		multiple: cfg.Bool("multiple", true),
		selected: make(map[string]bool),
	}, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init drops removed rows from the selection.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.subs.Add(host.Events().Subscribe(events.RowRemoved, func(ctx context.Context, ev events.Event) error {
		if p.selected[ev.Detail.RowID] {
			delete(p.selected, ev.Detail.RowID)
			p.announce(ctx)
		}
		return nil
	}))
	return nil
}

// Refresh forgets rows that left the table.
func (p *Plugin) Refresh(ctx context.Context) error {
	changed := false
	for id := range p.selected {
		if p.host.Table().Row(id) == nil {
			delete(p.selected, id)
			changed = true
		}
	}
	if changed {
		p.announce(ctx)
	}
	return nil
}

// Destroy unsubscribes and clears the marks.
func (p *Plugin) Destroy() error {
	p.subs.UnsubscribeAll()
	for id := range p.selected {
		if row := p.host.Table().Row(id); row != nil {
			row.Element().RemoveClass(ClassSelected)
		}
	}
	p.selected = make(map[string]bool)
	return nil
}

// Select adds row to the selection. In single mode it replaces the
// selection.
func (p *Plugin) Select(ctx context.Context, row *table.Row) {
	if row == nil || p.selected[row.ID()] {
		return
	}
	if !p.multiple {
		p.unmarkAll()
	}
	p.mark(row, true)
	p.announce(ctx)
}

// Deselect removes row from the selection.
func (p *Plugin) Deselect(ctx context.Context, row *table.Row) {
	if row == nil || !p.selected[row.ID()] {
		return
	}
	p.mark(row, false)
	p.announce(ctx)
}

// Toggle flips the selection state of row.
func (p *Plugin) Toggle(ctx context.Context, row *table.Row) {
	if row == nil {
		return
	}
	if p.selected[row.ID()] {
		p.Deselect(ctx, row)
	} else {
		p.Select(ctx, row)
	}
}

// SelectAll selects every row; in single mode it is a no-op.
func (p *Plugin) SelectAll(ctx context.Context) {
	if !p.multiple {
		return
	}
	for _, row := range p.host.Table().Rows() {
		p.mark(row, true)
	}
	p.announce(ctx)
}

// Clear empties the selection.
func (p *Plugin) Clear(ctx context.Context) {
	if len(p.selected) == 0 {
		return
	}
	p.unmarkAll()
	p.announce(ctx)
}

// IsSelected reports whether row is selected.
func (p *Plugin) IsSelected(row *table.Row) bool {
	return row != nil && p.selected[row.ID()]
}

// Selected returns the selected row ids in table order.
func (p *Plugin) Selected() []string {
	ids := []string{}
	for _, row := range p.host.Table().Rows() {
		if p.selected[row.ID()] {
			ids = append(ids, row.ID())
		}
	}
	return ids
}

// SelectedRows returns the selected rows in table order.
func (p *Plugin) SelectedRows() []*table.Row {
	var rows []*table.Row
	for _, row := range p.host.Table().Rows() {
		if p.selected[row.ID()] {
			rows = append(rows, row)
		}
	}
	return rows
}

// MenuItems offers toggling the cell's row and, in multiple mode, selecting
// or clearing every row.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	if cell == nil {
		return nil
	}
	label := "Select row"
	if p.IsSelected(cell.Row()) {
		label = "Deselect row"
	}
	items := []plugin.MenuItem{{
		ID:    "selection:toggle",
		Label: label,
		Action: func(ctx context.Context, c *table.Cell) error {
			p.Toggle(ctx, c.Row())
			return nil
		},
	}}
	if p.multiple {
		items = append(items, plugin.MenuItem{
			ID:    "selection:all",
			Label: "Select all",
			Action: func(ctx context.Context, _ *table.Cell) error {
				p.SelectAll(ctx)
				return nil
			},
		})
	}
	if len(p.selected) > 0 {
		items = append(items, plugin.MenuItem{
			ID:    "selection:clear",
			Label: "Clear selection",
			Action: func(ctx context.Context, _ *table.Cell) error {
				p.Clear(ctx)
				return nil
			},
		})
	}
	return items
}

func (p *Plugin) mark(row *table.Row, on bool) {
	row.Element().ToggleClass(ClassSelected, on)
	if on {
		p.selected[row.ID()] = true
	} else {
		delete(p.selected, row.ID())
	}
}

func (p *Plugin) unmarkAll() {
	for id := range p.selected {
		if row := p.host.Table().Row(id); row != nil {
			row.Element().RemoveClass(ClassSelected)
		}
		delete(p.selected, id)
	}
}

func (p *Plugin) announce(ctx context.Context) {
	p.host.Events().Dispatch(ctx, events.New(events.SelectionChange, events.Detail{
		Extra: map[string]any{"selected": p.Selected()},
	}))
}
