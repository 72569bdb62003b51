package plugin

import (
	"context"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/hook"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/loop"
	"github.com/alexisbeaulieu97/tableflow/internal/model"
	"github.com/alexisbeaulieu97/tableflow/internal/storage"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Plugin defines the contract every table plugin satisfies.
//
// Init is called once, in load order, after the host has snapshotted the
// table. Plugins loaded earlier are visible through Host.GetPlugin. An Init
// error marks the plugin failed; the host keeps running without it.
type Plugin interface {
	Name() string
	Init(ctx context.Context, host Host) error
}

// Refresher is implemented by plugins that rescan the table after rows are
// added, moved or removed.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Destroyer is implemented by plugins holding timers, subscriptions or hook
// registrations that must be released when the host is destroyed.
type Destroyer interface {
	Destroy() error
}

// Dependent is implemented by plugins that must be refreshed after others.
type Dependent interface {
	Dependencies() []string
}

// RowSaver is implemented by plugins that keep per-row state reset by a save.
// opts carries the options passed to the host; plugins read their own key.
type RowSaver interface {
	MarkRowAsSaved(row *table.Row, opts map[string]any)
}

// MenuItem is one context menu entry.
type MenuItem struct {
	ID     string
	Label  string
	Action func(ctx context.Context, cell *table.Cell) error
}

// MenuProvider is implemented by plugins contributing context menu entries.
type MenuProvider interface {
	MenuItems(cell *table.Cell) []MenuItem
}

// Change describes one cell write.
type Change struct {
	Value string
	// Display is the text shown in the cell; Value is shown when empty.
	Display string
	Source  string
	// Flagged marks the cell modified even when Value equals the initial
	// value.
	Flagged bool
}

// RenderContext is passed to onRender hooks before a committed value is
// displayed. Hooks may rewrite Display.
type RenderContext struct {
	Cell    *table.Cell
	Value   string
	Display string
}

// RefreshReport lists the outcome of one refresh cycle.
type RefreshReport struct {
	Refreshed []string
	Failed    map[string]error
}

// OK reports whether every plugin refreshed.
func (r RefreshReport) OK() bool { return len(r.Failed) == 0 }

// Host is the table host as seen by plugins. It is only used from the
// goroutine owning the table; work finishing elsewhere goes through Post.
type Host interface {
	Document() *dom.Document
	Table() *table.Table
	Store() *model.Store
	Events() *events.Bus
	Hooks() *hook.Manager
	Dedup() *events.Dedup
	Storage() storage.Store
	Logger() *logger.Logger
	Debug() bool

	// GetPlugin returns a loaded plugin by case-insensitive name, or nil.
	GetPlugin(name string) Plugin
	// Loaded returns the loaded plugins in load order.
	Loaded() []Plugin

	// Claim gives owner exclusive control of cell. It reports false when
	// another plugin already owns it.
	Claim(cell *table.Cell, owner string) bool

	// SetCellValue writes value, re-derives the row state and dispatches
	// cell:change.
	SetCellValue(ctx context.Context, cell *table.Cell, value, source string) events.Event
	// WriteCell is SetCellValue with control over display text and flag.
	WriteCell(ctx context.Context, cell *table.Cell, change Change) events.Event

	AddRow(ctx context.Context, data any, position string) (*table.Row, error)
	RemoveRow(ctx context.Context, row *table.Row) error
	MarkRowAsSaved(ctx context.Context, row *table.Row, opts map[string]any) error
	IsModified(row *table.Row) bool
	// FlagRow sets the row's modified override.
	FlagRow(row *table.Row, on bool)
	RefreshPlugins(ctx context.Context) RefreshReport

	Post(task loop.Task) bool
	// Defer runs task after the current call stack unwinds.
	Defer(task loop.Task) bool
}
