// Package editplugin makes th-edit columns editable in place. Every step of
// an edit runs through the shared hooks so other plugins can veto it or
// rewrite how the committed value is shown.
package editplugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/hook"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/model"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "edit"

// Marker is the header attribute opting a column in.
const Marker = "edit"

// InputClass is the class of the edit field.
const InputClass = "edit-input"

var (
	// ErrNotEditable is returned for cells the plugin does not own.
	ErrNotEditable = errors.New("cell is not editable")
	// ErrAlreadyEditing is returned when the cell has an open session.
	ErrAlreadyEditing = errors.New("cell is already being edited")
	// ErrEditVetoed is returned when a beforeEdit hook cancelled the edit.
	ErrEditVetoed = errors.New("edit vetoed")
	// ErrSaveVetoed is returned when a beforeSave hook cancelled the commit.
	ErrSaveVetoed = errors.New("save vetoed")
	// ErrSessionClosed is returned when using a finished session.
	ErrSessionClosed = errors.New("edit session closed")
)

// Keys understood by Session.KeyDown.
const (
	KeyEnter  = "Enter"
	KeyEscape = "Escape"
)

// Plugin is the in-place editor.
type Plugin struct {
	host     plugin.Host
	log      *logger.Logger
	sessions map[model.CellKey]*Session
	subs     events.Subscriptions
}

// New is the plugin factory.
func New(plugin.Config) (plugin.Plugin, error) {
	return &Plugin{sessions: make(map[model.CellKey]*Session)}, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init claims the cells of every th-edit column.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)

	if len(host.Table().ColumnsWith(Marker)) == 0 {
		p.log.Debug("no editable columns")
	}
	for _, row := range host.Table().Rows() {
		p.claimRow(row)
	}

	p.subs.Add(host.Events().Subscribe(events.RowAdded, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Row != nil {
			p.claimRow(ev.Detail.Row)
		}
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.RowRemoved, func(_ context.Context, ev events.Event) error {
		for key, s := range p.sessions {
			if key.RowID == ev.Detail.RowID {
				s.close()
			}
		}
		return nil
	}))
	return nil
}

func (p *Plugin) claimRow(row *table.Row) {
	for _, cell := range row.Cells() {
		if cell.Column().Has(Marker) {
			p.host.Claim(cell, Name)
		}
	}
}

// Refresh claims cells of rows added since Init and drops sessions of rows
// that left the table.
func (p *Plugin) Refresh(context.Context) error {
	for _, row := range p.host.Table().Rows() {
		p.claimRow(row)
	}
	for _, s := range p.sessions {
		if !s.cell.Row().Attached() {
			s.close()
		}
	}
	return nil
}

// Destroy cancels open sessions and unsubscribes.
func (p *Plugin) Destroy() error {
	for _, s := range p.sessions {
		s.Cancel()
	}
	p.subs.UnsubscribeAll()
	return nil
}

// Editable reports whether the plugin owns cell.
func (p *Plugin) Editable(cell *table.Cell) bool {
	return cell != nil && cell.Column().Has(Marker) && p.host.Store().Owner(cell.Key()) == Name
}

// Session returns the open session of cell, or nil.
func (p *Plugin) Session(cell *table.Cell) *Session {
	return p.sessions[cell.Key()]
}

// Sessions returns the number of open sessions.
func (p *Plugin) Sessions() int { return len(p.sessions) }

// StartEdit opens an edit session on cell. beforeEdit hooks may veto it;
// afterEdit hooks run once the field is in place.
func (p *Plugin) StartEdit(ctx context.Context, cell *table.Cell) (*Session, error) {
	if !p.Editable(cell) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotEditable, cell.Key().RowID, cell.Key().ColumnID)
	}
	if _, open := p.sessions[cell.Key()]; open {
		return nil, ErrAlreadyEditing
	}
	if !p.host.Hooks().Allowed(ctx, hook.BeforeEdit, cell) {
		return nil, ErrEditVetoed
	}

	value := cell.Value()
	input := dom.NewElement("input")
	input.AddClass(InputClass)
	input.SetAttr("type", "text")
	input.SetAttr("value", value)

	s := &Session{
		plugin:  p,
		cell:    cell,
		input:   input,
		value:   value,
		display: cell.Display(),
	}
	cell.SetDisplay("")
	cell.Decorate(input)
	p.sessions[cell.Key()] = s

	p.host.Hooks().Allowed(ctx, hook.AfterEdit, cell, input)
	return s, nil
}

// Session is one open edit of one cell.
type Session struct {
	plugin  *Plugin
	cell    *table.Cell
	input   *dom.Element
	value   string
	display string
	closed  bool
}

// Cell returns the edited cell.
func (s *Session) Cell() *table.Cell { return s.cell }

// Input returns the edit field element.
func (s *Session) Input() *dom.Element { return s.input }

// Value returns the pending value.
func (s *Session) Value() string { return s.value }

// Type replaces the pending value, as typing into the field would.
func (s *Session) Type(text string) {
	if s.closed {
		return
	}
	s.value = text
	s.input.SetAttr("value", text)
}

// KeyDown handles a key pressed in the field. onKeydown hooks may veto the
// default handling; Enter commits and Escape cancels.
func (s *Session) KeyDown(ctx context.Context, key string) error {
	if s.closed {
		return ErrSessionClosed
	}
	if !s.plugin.host.Hooks().Allowed(ctx, hook.OnKeydown, s.cell, key) {
		return nil
	}
	switch key {
	case KeyEnter:
		return s.Commit(ctx)
	case KeyEscape:
		s.Cancel()
	}
	return nil
}

// Commit writes the pending value. beforeSave hooks may veto the save, which
// cancels the session. onRender hooks may rewrite the displayed text.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	host := s.plugin.host
	if !host.Hooks().Allowed(ctx, hook.BeforeSave, s.cell, s.value) {
		s.Cancel()
		return ErrSaveVetoed
	}

	s.close()

	rc := &plugin.RenderContext{Cell: s.cell, Value: s.value, Display: s.value}
	host.Hooks().Allowed(ctx, hook.OnRender, rc)

	host.WriteCell(ctx, s.cell, plugin.Change{Value: s.value, Display: rc.Display, Source: events.SourceEdit})
	host.Events().Dispatch(ctx, events.Scoped(events.CellSaved, events.ForCell(s.cell, events.SourceEdit)))
	host.Hooks().Allowed(ctx, hook.AfterSave, s.cell, s.value)
	return nil
}

// Cancel discards the pending value and restores the previous text.
func (s *Session) Cancel() {
	if s.closed {
		return
	}
	s.close()
	s.cell.SetDisplay(s.display)
}

func (s *Session) close() {
	if s.closed {
		return
	}
	s.closed = true
	s.input.Remove()
	delete(s.plugin.sessions, s.cell.Key())
}
