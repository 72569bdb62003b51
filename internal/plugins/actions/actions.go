// Package actionsplugin renders per-row action buttons in th-actions
// columns and runs them. Rows with unsaved changes are tracked from
// cell:change events; saving validates the row when the validation plugin is
// loaded, hands the row to an optional Saver and marks it saved.
package actionsplugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	validationplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/validation"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "actions"

// Marker is the header attribute of the button column.
const Marker = "actions"

// Built-in actions.
const (
	ActionSave   = "save"
	ActionDelete = "delete"
)

// ButtonClass is the class shared by every action button.
const ButtonClass = "action-button"

var (
	// ErrUnknownAction is returned for actions without a handler.
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidRow is returned when saving a row that fails validation.
	ErrInvalidRow = errors.New("row is invalid")
	// ErrDetachedRow is returned for rows no longer in the table.
	ErrDetachedRow = errors.New("row is not part of the table")
)

// Saver persists a row before it is marked saved. A returned error keeps
// the row pending.
type Saver func(ctx context.Context, row *table.Row, data map[string]string) error

// Handler runs a custom action.
type Handler func(ctx context.Context, row *table.Row) error

type config struct {
	AutoSave bool     `yaml:"autoSave"`
	Actions  []string `yaml:"actions"`
}

// PluginOption customizes the plugin beyond its YAML configuration.
type PluginOption func(*Plugin)

// WithSaver sets the function persisting saved rows.
func WithSaver(s Saver) PluginOption {
	return func(p *Plugin) { p.saver = s }
}

// WithHandler registers a custom action.
func WithHandler(action string, h Handler) PluginOption {
	return func(p *Plugin) { p.handlers[action] = h }
}

// Plugin is the actions plugin.
type Plugin struct {
	host     plugin.Host
	log      *logger.Logger
	cfg      config
	saver    Saver
	handlers map[string]Handler

	pending map[string]bool
	subs    events.Subscriptions
}

// Factory returns a plugin factory applying opts.
func Factory(opts ...PluginOption) plugin.Factory {
	return func(cfg plugin.Config) (plugin.Plugin, error) {
		return newPlugin(cfg, opts...)
	}
}

// New is the plugin factory without a saver or custom handlers.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return newPlugin(cfg)
}

func newPlugin(cfg plugin.Config, opts ...PluginOption) (*Plugin, error) {
	p := &Plugin{
		handlers: make(map[string]Handler),
		pending:  make(map[string]bool),
	}
	if err := cfg.Decode(&p.cfg); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init renders the buttons and starts tracking changes.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)

	for _, row := range host.Table().Rows() {
		p.render(row)
	}

	p.subs.Add(host.Events().Subscribe(events.CellChange, p.onCellChange))
	p.subs.Add(host.Events().Subscribe(events.RowAdded, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Row != nil {
			p.render(ev.Detail.Row)
		}
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.RowRemoved, func(_ context.Context, ev events.Event) error {
		delete(p.pending, ev.Detail.RowID)
		return nil
	}))
	return nil
}

func (p *Plugin) onCellChange(ctx context.Context, ev events.Event) error {
	if p.host.Dedup().Seen(Name + ":" + ev.Detail.EventID) {
		return nil
	}
	row := ev.Detail.Row
	if row == nil {
		return nil
	}
	p.setPending(row, p.host.IsModified(row))

	if p.cfg.AutoSave && p.pending[row.ID()] && ev.Detail.Source != events.SourceAutoSave {
		ctx = context.WithoutCancel(ctx)
		p.host.Defer(func() {
			if !row.Attached() || !p.pending[row.ID()] {
				return
			}
			if err := p.save(ctx, row, events.SourceAutoSave); err != nil {
				p.log.WithFields(map[string]any{"row": row.ID()}).Error(err, "auto save failed")
			}
		})
	}
	return nil
}

// Refresh renders buttons on rows added since the last scan.
func (p *Plugin) Refresh(context.Context) error {
	for _, row := range p.host.Table().Rows() {
		p.render(row)
	}
	return nil
}

// Destroy unsubscribes.
func (p *Plugin) Destroy() error {
	p.subs.UnsubscribeAll()
	return nil
}

// MarkRowAsSaved clears the row's pending state.
func (p *Plugin) MarkRowAsSaved(row *table.Row, _ map[string]any) {
	p.setPending(row, false)
}

// Pending reports whether the row has unsaved changes.
func (p *Plugin) Pending(row *table.Row) bool {
	return p.pending[row.ID()]
}

// PendingRows returns the ids of rows with unsaved changes, sorted.
func (p *Plugin) PendingRows() []string {
	ids := make([]string, 0, len(p.pending))
	for id, on := range p.pending {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Actions returns the actions offered on each row.
func (p *Plugin) Actions() []string {
	if len(p.cfg.Actions) > 0 {
		return append([]string(nil), p.cfg.Actions...)
	}
	if col, ok := p.column(); ok {
		if raw, _ := col.Marker(Marker); strings.TrimSpace(raw) != "" {
			return plugin.SplitList(raw)
		}
	}
	return []string{ActionSave, ActionDelete}
}

// Execute runs action on row.
func (p *Plugin) Execute(ctx context.Context, row *table.Row, action string) error {
	if row == nil || !row.Attached() {
		return ErrDetachedRow
	}
	switch action {
	case ActionSave:
		return p.save(ctx, row, events.SourceManual)
	case ActionDelete:
		return p.host.RemoveRow(ctx, row)
	}
	h, ok := p.handlers[action]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return h(ctx, row)
}

func (p *Plugin) save(ctx context.Context, row *table.Row, source string) error {
	if v, ok := p.host.GetPlugin(validationplugin.Name).(*validationplugin.Plugin); ok {
		if valid, failed := v.ValidateRow(row); !valid {
			cols := make([]string, 0, len(failed))
			for col, msg := range failed {
				cols = append(cols, col+": "+msg)
			}
			sort.Strings(cols)
			return fmt.Errorf("%w: %s", ErrInvalidRow, strings.Join(cols, "; "))
		}
	}
	if p.saver != nil {
		if err := p.saver(ctx, row, row.Data()); err != nil {
			return fmt.Errorf("save row %s: %w", row.ID(), err)
		}
	}
	return p.host.MarkRowAsSaved(ctx, row, map[string]any{"source": source})
}

// MenuItems offers the row actions on any cell.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	if cell == nil {
		return nil
	}
	var items []plugin.MenuItem
	for _, action := range p.Actions() {
		action := action
		items = append(items, plugin.MenuItem{
			ID:    Name + ":" + action,
			Label: label(action),
			Action: func(ctx context.Context, c *table.Cell) error {
				return p.Execute(ctx, c.Row(), action)
			},
		})
	}
	return items
}

func (p *Plugin) column() (table.Column, bool) {
	cols := p.host.Table().ColumnsWith(Marker)
	if len(cols) == 0 {
		return table.Column{}, false
	}
	return cols[0], true
}

func (p *Plugin) render(row *table.Row) {
	col, ok := p.column()
	if !ok {
		return
	}
	cell := row.Cell(col.ID)
	if cell == nil || !p.host.Claim(cell, Name) {
		return
	}
	for _, action := range p.Actions() {
		if Button(cell, action) != nil {
			continue
		}
		b := dom.NewElement("button")
		b.AddClass(ButtonClass)
		b.AddClass("action-" + action)
		b.SetAttr("type", "button")
		b.SetAttr("data-action", action)
		b.SetText(label(action))
		cell.Decorate(b)
	}
	p.sync(row)
}

func (p *Plugin) setPending(row *table.Row, on bool) {
	if on {
		p.pending[row.ID()] = true
	} else {
		delete(p.pending, row.ID())
	}
	p.sync(row)
}

func (p *Plugin) sync(row *table.Row) {
	col, ok := p.column()
	if !ok {
		return
	}
	cell := row.Cell(col.ID)
	if cell == nil {
		return
	}
	if b := Button(cell, ActionSave); b != nil {
		if p.pending[row.ID()] {
			b.RemoveAttr("disabled")
		} else {
			b.SetAttr("disabled", "")
		}
	}
}

// Button returns the button element of action in cell, or nil.
func Button(cell *table.Cell, action string) *dom.Element {
	return cell.Element().FindByClass("action-" + action)
}

func label(action string) string {
	if action == "" {
		return ""
	}
	return strings.ToUpper(action[:1]) + action[1:]
}
