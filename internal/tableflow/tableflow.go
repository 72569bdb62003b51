// Package tableflow hosts the plugins enhancing one HTML table. The host owns
// the table element and the cell state store, loads and initializes plugins,
// refreshes them in dependency order and brokers lookups between them.
//
// A TableFlow is confined to the goroutine that created it. Asynchronous work
// started by plugins posts its results back with Post and runs during Drain or
// Run.
package tableflow

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/hook"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/loop"
	"github.com/alexisbeaulieu97/tableflow/internal/model"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/storage"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
	tferrors "github.com/alexisbeaulieu97/tableflow/pkg/errors"
)

// Row insertion positions accepted by AddRow.
const (
	PositionStart = "start"
	PositionEnd   = "end"
)

// Options is the host construction contract.
type Options struct {
	TableID string
	Plugins plugin.Spec
	// PluginsPath is where plugin factories are expected to come from. It
	// only appears in diagnostics; factories are registered explicitly.
	PluginsPath      string
	Debug            bool
	CellWrapperClass string
	HeadWrapperClass string
}

// Option customizes a TableFlow.
type Option func(*TableFlow)

// WithDocument sets the document holding the table.
func WithDocument(doc *dom.Document) Option {
	return func(t *TableFlow) { t.doc = doc }
}

// WithLogger sets the host logger.
func WithLogger(log *logger.Logger) Option {
	return func(t *TableFlow) { t.logger = log }
}

// WithStorage sets the store used for persisted table state.
func WithStorage(s storage.Store) Option {
	return func(t *TableFlow) { t.storage = s }
}

// WithDedupSize sets the capacity of the event id recency set.
func WithDedupSize(n int) Option {
	return func(t *TableFlow) { t.dedup = events.NewDedup(n) }
}

var _ plugin.Host = (*TableFlow)(nil)

// TableFlow is the plugin lifecycle host of one table.
type TableFlow struct {
	opts      Options
	factories *plugin.Registry

	doc     *dom.Document
	table   *table.Table
	store   *model.Store
	bus     *events.Bus
	hooks   *hook.Manager
	dedup   *events.Dedup
	storage storage.Store
	tasks   *loop.Loop
	logger  *logger.Logger

	entries   []*plugin.Entry
	loaded    []*plugin.Entry
	byName    map[string]*plugin.Entry
	destroyed bool
}

// New validates opts and builds an uninitialized host. Call Init to attach
// it to the table.
func New(opts Options, factories *plugin.Registry, options ...Option) (*TableFlow, error) {
	if strings.TrimSpace(opts.TableID) == "" {
		return nil, tferrors.NewHostError("new", tferrors.ErrMissingTableID)
	}
	if factories == nil {
		factories = plugin.NewRegistry()
	}

	t := &TableFlow{
		opts:      opts,
		factories: factories,
		store:     model.NewStore(),
		byName:    make(map[string]*plugin.Entry),
	}
	for _, opt := range options {
		opt(t)
	}

	if t.logger == nil {
		t.logger = logger.Nop()
	}
	if opts.Debug {
		t.logger = t.logger.AtLevel("debug")
	}
	t.logger = t.logger.WithFields(map[string]any{"component": "tableflow", "table": opts.TableID})

	if t.storage == nil {
		t.storage = storage.NewMemory()
	}
	if t.dedup == nil {
		t.dedup = events.NewDedup(events.DefaultDedupSize)
	}
	t.bus = events.NewBus(t.logger)
	t.hooks = hook.NewManager(t.logger)
	t.tasks = loop.New(func(r any) {
		t.logger.Error(fmt.Errorf("%v", r), "deferred task panicked")
	})
	return t, nil
}

// Init locates the table, snapshots every cell as its clean baseline and
// loads the plugins named in Options.
func (t *TableFlow) Init(ctx context.Context) error {
	if t.destroyed {
		return tferrors.NewHostError("init", fmt.Errorf("host destroyed"))
	}
	if t.table != nil {
		return nil
	}

	el := t.doc.GetElementByID(t.opts.TableID)
	if el == nil {
		return tferrors.NewHostError("init", fmt.Errorf("%w: #%s", tferrors.ErrTableNotFound, t.opts.TableID))
	}
	if !el.Is(atom.Table) {
		return tferrors.NewHostError("init", fmt.Errorf("%w: #%s is <%s>", tferrors.ErrNotATable, t.opts.TableID, el.Tag()))
	}

	t.table = table.New(el, t.store, table.Options{
		CellWrapperClass: t.opts.CellWrapperClass,
		HeadWrapperClass: t.opts.HeadWrapperClass,
	})
	t.table.Snapshot()
	t.logger.WithFields(map[string]any{"cells": t.store.Len()}).Debug("table snapshotted")

	if t.opts.Plugins.Len() == 0 {
		return nil
	}
	return t.LoadPlugins(ctx, t.opts.Plugins)
}

// Document returns the document holding the table.
func (t *TableFlow) Document() *dom.Document { return t.doc }

// Table returns the table view. It is nil before Init.
func (t *TableFlow) Table() *table.Table { return t.table }

// Store returns the cell state store.
func (t *TableFlow) Store() *model.Store { return t.store }

// Events returns the table's event bus.
func (t *TableFlow) Events() *events.Bus { return t.bus }

// Hooks returns the hook manager shared by the plugins.
func (t *TableFlow) Hooks() *hook.Manager { return t.hooks }

// Dedup returns the host-scoped event id recency set.
func (t *TableFlow) Dedup() *events.Dedup { return t.dedup }

// Storage returns the persisted state store.
func (t *TableFlow) Storage() storage.Store { return t.storage }

// Logger returns the host logger.
func (t *TableFlow) Logger() *logger.Logger { return t.logger }

// Debug reports whether debug mode is on.
func (t *TableFlow) Debug() bool { return t.opts.Debug }

// Options returns the construction options.
func (t *TableFlow) Options() Options { return t.opts }

// Post queues task for the host goroutine. It is safe from any goroutine.
func (t *TableFlow) Post(task loop.Task) bool { return t.tasks.Post(task) }

// Defer runs task once the current call stack has unwound, on the next
// Drain.
func (t *TableFlow) Defer(task loop.Task) bool { return t.tasks.Post(task) }

// Drain runs every queued task and returns how many ran.
func (t *TableFlow) Drain() int { return t.tasks.Drain() }

// Run processes queued tasks until ctx is done or the host is destroyed.
func (t *TableFlow) Run(ctx context.Context) error { return t.tasks.Run(ctx) }

// Destroy tears down every plugin in reverse load order. Plugin failures are
// logged. The document is left as it is.
func (t *TableFlow) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true

	for i := len(t.loaded) - 1; i >= 0; i-- {
		entry := t.loaded[i]
		if !entry.Loaded() {
			continue
		}
		d, ok := entry.Instance.(plugin.Destroyer)
		if !ok {
			continue
		}
		if err := guard(entry.Name, d.Destroy); err != nil {
			t.logger.With("plugin", entry.Name).Error(err, "plugin destroy failed")
		}
	}

	t.tasks.Close()
	t.hooks.Clear()
	t.bus.Reset()
	t.dedup.Clear()
	t.entries = nil
	t.loaded = nil
	t.byName = make(map[string]*plugin.Entry)
}

// guard runs fn, turning a panic into a PluginError.
func guard(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = tferrors.NewPluginError(name, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := fn(); err != nil {
		return tferrors.NewPluginError(name, err)
	}
	return nil
}
