// Package contextmenuplugin builds a per-cell menu from the entries offered
// by every loaded plugin implementing plugin.MenuProvider, plus its own copy
// and reset entries.
package contextmenuplugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "contextmenu"

// Entries contributed by the menu itself.
const (
	ItemCopy  = "contextmenu:copy"
	ItemReset = "contextmenu:reset"
)

var (
	// ErrNoMenu is returned by Invoke when no menu is open.
	ErrNoMenu = errors.New("no context menu is open")
	// ErrUnknownItem is returned for ids not in the open menu.
	ErrUnknownItem = errors.New("unknown menu item")
)

// Copier writes text to a clipboard.
type Copier func(text string) error

// PluginOption customizes the plugin.
type PluginOption func(*Plugin)

// WithCopier replaces the system clipboard.
func WithCopier(c Copier) PluginOption {
	return func(p *Plugin) { p.copy = c }
}

// Plugin is the context menu plugin.
type Plugin struct {
	host plugin.Host
	log  *logger.Logger
	copy Copier

	cell  *table.Cell
	items []plugin.MenuItem
	subs  events.Subscriptions
}

// Factory returns a plugin factory applying opts.
func Factory(opts ...PluginOption) plugin.Factory {
	return func(plugin.Config) (plugin.Plugin, error) {
		p := &Plugin{copy: clipboard.WriteAll}
		for _, opt := range opts {
			opt(p)
		}
		return p, nil
	}
}

// New is the plugin factory using the system clipboard.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return Factory()(cfg)
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init closes the menu when its row goes away.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	p.subs.Add(host.Events().Subscribe(events.RowRemoved, func(_ context.Context, ev events.Event) error {
		if p.cell != nil && p.cell.Row().ID() == ev.Detail.RowID {
			p.Close()
		}
		return nil
	}))
	return nil
}

// Destroy closes the menu and unsubscribes.
func (p *Plugin) Destroy() error {
	p.Close()
	p.subs.UnsubscribeAll()
	return nil
}

// Open builds the menu of cell: entries of the loaded plugins in load order,
// then the menu's own entries.
func (p *Plugin) Open(cell *table.Cell) []plugin.MenuItem {
	var items []plugin.MenuItem
	for _, pl := range p.host.Loaded() {
		if pl == plugin.Plugin(p) {
			continue
		}
		provider, ok := pl.(plugin.MenuProvider)
		if !ok {
			continue
		}
		items = append(items, p.collect(pl.Name(), provider, cell)...)
	}
	items = append(items, p.MenuItems(cell)...)

	p.cell, p.items = cell, items
	p.log.WithFields(map[string]any{"row": cell.Row().ID(), "column": cell.Column().ID, "items": len(items)}).Debug("context menu opened")
	return append([]plugin.MenuItem(nil), items...)
}

// collect isolates a provider that panics.
func (p *Plugin) collect(name string, provider plugin.MenuProvider, cell *table.Cell) (items []plugin.MenuItem) {
	defer func() {
		if r := recover(); r != nil {
			p.log.With("provider", name).Error(fmt.Errorf("%v", r), "menu provider panicked")
			items = nil
		}
	}()
	return provider.MenuItems(cell)
}

// MenuItems returns the menu's own entries for cell.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	items := []plugin.MenuItem{{
		ID:    ItemCopy,
		Label: "Copy value",
		Action: func(_ context.Context, c *table.Cell) error {
			return p.copy(c.Value())
		},
	}}
	if cell.Value() != cell.InitialValue() {
		items = append(items, plugin.MenuItem{
			ID:    ItemReset,
			Label: "Reset to saved value",
			Action: func(ctx context.Context, c *table.Cell) error {
				p.host.SetCellValue(ctx, c, c.InitialValue(), events.SourceManual)
				return nil
			},
		})
	}
	return items
}

// Current returns the cell and entries of the open menu.
func (p *Plugin) Current() (*table.Cell, []plugin.MenuItem) {
	return p.cell, append([]plugin.MenuItem(nil), p.items...)
}

// Invoke runs the entry id of the open menu and closes it.
func (p *Plugin) Invoke(ctx context.Context, id string) error {
	if p.cell == nil {
		return ErrNoMenu
	}
	for _, item := range p.items {
		if item.ID != id {
			continue
		}
		cell := p.cell
		p.Close()
		if item.Action == nil {
			return nil
		}
		return item.Action(ctx, cell)
	}
	return fmt.Errorf("%w: %s", ErrUnknownItem, id)
}

// Close discards the open menu.
func (p *Plugin) Close() {
	p.cell, p.items = nil, nil
}
