// Package choiceplugin turns th-choice and th-choice-multiple columns into
// pick lists. Options come from configuration, from the header's
// data-choices attribute, or from a remote lookup that is debounced per cell
// and cancelled when superseded.
package choiceplugin

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/model"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "choice"

// Header markers.
const (
	MarkerSingle   = "choice"
	MarkerMultiple = "choice-multiple"
)

// DefaultDebounce is the delay between the last keystroke and the lookup.
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrNotChoice is returned for cells the plugin does not own.
	ErrNotChoice = errors.New("cell is not a choice cell")
	// ErrUnknownOption is returned when selecting a value outside the options.
	ErrUnknownOption = errors.New("unknown option")
	// ErrNoLookup is returned by Search for columns without a lookup url.
	ErrNoLookup = errors.New("column has no lookup url")
)

// State is the lookup state of one cell.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// Option is one selectable value.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// UnmarshalYAML accepts a plain string as an option whose label is its
// value.
func (o *Option) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		o.Value, o.Label = node.Value, node.Value
		return nil
	}
	type raw Option
	var r raw
	if err := node.Decode(&r); err != nil {
		return err
	}
	*o = Option(r)
	if o.Label == "" {
		o.Label = o.Value
	}
	return nil
}

type columnConfig struct {
	Options []Option `yaml:"options"`
	URL     string   `yaml:"url"`
}

type config struct {
	Columns map[string]columnConfig `yaml:"columns"`
}

// PluginOption customizes the plugin beyond its YAML configuration.
type PluginOption func(*Plugin)

// WithFetcher replaces the HTTP lookup.
func WithFetcher(f Fetcher) PluginOption {
	return func(p *Plugin) { p.fetcher = f }
}

// WithDebounce overrides the lookup delay.
func WithDebounce(d time.Duration) PluginOption {
	return func(p *Plugin) { p.debounce = d }
}

// Plugin is the choice plugin.
type Plugin struct {
	host     plugin.Host
	log      *logger.Logger
	debounce time.Duration
	fetcher  Fetcher
	columns  map[string]columnConfig
	fields   map[model.CellKey]*field

	ctx    context.Context
	cancel context.CancelFunc
	subs   events.Subscriptions
}

type field struct {
	gen     int
	timer   *time.Timer
	cancel  context.CancelFunc
	state   State
	term    string
	results []Option
	err     error
}

func (f *field) stop() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

// Factory returns a plugin factory applying opts.
func Factory(opts ...PluginOption) plugin.Factory {
	return func(cfg plugin.Config) (plugin.Plugin, error) {
		return newPlugin(cfg, opts...)
	}
}

// New is the plugin factory with the HTTP fetcher.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return newPlugin(cfg)
}

func newPlugin(cfg plugin.Config, opts ...PluginOption) (*Plugin, error) {
	var c config
	if err := cfg.Decode(&c); err != nil {
		return nil, err
	}
	p := &Plugin{
		debounce: cfg.Duration("debounce", DefaultDebounce),
		fetcher:  NewHTTPFetcher(),
		columns:  c.Columns,
		fields:   make(map[model.CellKey]*field),
	}
	if p.columns == nil {
		p.columns = make(map[string]columnConfig)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init claims the cells of every choice column.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	p.ctx, p.cancel = context.WithCancel(context.Background())

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
		for key, f := range p.fields {
			if key.RowID == ev.Detail.RowID {
				f.stop()
				delete(p.fields, key)
			}
		}
		return nil
	}))
	return nil
}

func (p *Plugin) claimRow(row *table.Row) {
	for _, cell := range row.Cells() {
		col := cell.Column()
		if !col.Has(MarkerSingle) && !col.Has(MarkerMultiple) {
			continue
		}
		if !p.host.Claim(cell, Name) {
			continue
		}
		if col.Has(MarkerMultiple) {
			if st, ok := p.host.Store().Get(cell.Key()); ok && !st.Modified() {
				if norm := joinValues(splitValues(st.Value)); norm != st.Value {
					p.host.Store().Seed(cell.Key(), norm)
					p.host.Table().Reflect(cell)
				}
			}
		}
		if opts := p.Options(cell); len(opts) > 0 {
			cell.SetDisplay(p.labels(opts, splitValues(cell.Value())))
		}
	}
}

// Refresh abandons lookups of the previous table state and claims new rows.
func (p *Plugin) Refresh(context.Context) error {
	p.reset()
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for _, row := range p.host.Table().Rows() {
		p.claimRow(row)
	}
	return nil
}

// Destroy stops every timer and cancels every lookup.
func (p *Plugin) Destroy() error {
	p.reset()
	p.subs.UnsubscribeAll()
	return nil
}

func (p *Plugin) reset() {
	if p.cancel != nil {
		p.cancel()
	}
	for key, f := range p.fields {
		f.stop()
		delete(p.fields, key)
	}
}

// Multiple reports whether the cell accepts several values.
func (p *Plugin) Multiple(cell *table.Cell) bool {
	return cell.Column().Has(MarkerMultiple)
}

// Options returns the static options of the cell's column.
func (p *Plugin) Options(cell *table.Cell) []Option {
	col := cell.Column()
	if cc, ok := p.columns[col.ID]; ok && len(cc.Options) > 0 {
		return append([]Option(nil), cc.Options...)
	}
	raw, ok := col.Header.Attr("data-choices")
	if !ok {
		return nil
	}
	var opts []Option
	for _, item := range plugin.SplitList(raw) {
		value, label, found := strings.Cut(item, ":")
		if !found {
			label = value
		}
		opts = append(opts, Option{Value: strings.TrimSpace(value), Label: strings.TrimSpace(label)})
	}
	return opts
}

func (p *Plugin) lookupURL(cell *table.Cell) string {
	col := cell.Column()
	if cc, ok := p.columns[col.ID]; ok && cc.URL != "" {
		return cc.URL
	}
	return col.Header.AttrOr("data-url", "")
}

func (p *Plugin) owned(cell *table.Cell) bool {
	return cell != nil && p.host.Store().Owner(cell.Key()) == Name
}

// Select sets the cell's value. Single-choice cells take exactly one value;
// multi-choice cells store the sorted, de-duplicated values joined by commas
// and are flagged modified whenever the set differs from the saved one.
func (p *Plugin) Select(ctx context.Context, cell *table.Cell, values ...string) error {
	if !p.owned(cell) {
		return ErrNotChoice
	}
	multiple := p.Multiple(cell)
	if !multiple && len(values) != 1 {
		return fmt.Errorf("single choice takes one value, got %d", len(values))
	}

	known := p.Options(cell)
	if f := p.fields[cell.Key()]; f != nil {
		known = append(known, f.results...)
	}
	if len(known) > 0 {
		for _, v := range values {
			if !hasOption(known, v) {
				return fmt.Errorf("%w: %q", ErrUnknownOption, v)
			}
		}
	}

	selected := splitValues(strings.Join(values, ","))
	change := plugin.Change{
		Value:   joinValues(selected),
		Display: p.labels(known, selected),
		Source:  events.SourceChoice,
	}
	if multiple {
		change.Source = events.SourceChoiceMultiple
		change.Flagged = !sameSet(selected, splitValues(cell.InitialValue()))
	}

	if f := p.fields[cell.Key()]; f != nil {
		f.stop()
		delete(p.fields, cell.Key())
	}
	p.host.WriteCell(ctx, cell, change)
	return nil
}

// Selected returns the cell's values.
func (p *Plugin) Selected(cell *table.Cell) []string {
	return splitValues(cell.Value())
}

// Search schedules a lookup of term for cell. Each call restarts the
// debounce timer and cancels the previous lookup of the same cell, so at
// most one request per cell is in flight. Results arrive through the host's
// task loop.
func (p *Plugin) Search(cell *table.Cell, term string) error {
	if !p.owned(cell) {
		return ErrNotChoice
	}
	if p.lookupURL(cell) == "" {
		return ErrNoLookup
	}

	key := cell.Key()
	f := p.fields[key]
	if f == nil {
		f = &field{state: StateIdle}
		p.fields[key] = f
	}
	f.stop()
	f.gen++
	f.term = term

	gen, genCtx := f.gen, p.ctx
	f.timer = time.AfterFunc(p.debounce, func() {
		p.host.Post(func() {
			if genCtx.Err() == nil {
				p.issue(cell, key, gen)
			}
		})
	})
	return nil
}

func (p *Plugin) issue(cell *table.Cell, key model.CellKey, gen int) {
	f := p.fields[key]
	if f == nil || f.gen != gen {
		return
	}
	f.timer = nil

	ctx, cancel := context.WithCancel(p.ctx)
	f.cancel = cancel
	f.state = StateLoading
	f.err = nil

	detail := events.ForCell(cell, "")
	detail.Extra = map[string]any{"term": f.term}
	p.host.Events().Dispatch(ctx, events.Scoped(events.ChoiceLoading, detail))

	endpoint, term, fetcher := p.lookupURL(cell), f.term, p.fetcher
	go func() {
		opts, err := fetcher.Fetch(ctx, endpoint, term)
		p.host.Post(func() { p.deliver(key, gen, opts, err) })
	}()
}

func (p *Plugin) deliver(key model.CellKey, gen int, opts []Option, err error) {
	f := p.fields[key]
	if f == nil || f.gen != gen {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	if err != nil {
		f.state = StateError
		f.err = err
		p.log.WithFields(map[string]any{"row": key.RowID, "column": key.ColumnID}).Error(err, "choice lookup failed")
		return
	}
	f.state = StateLoaded
	f.results = opts
}

// State returns the lookup state of the cell and the last lookup error.
func (p *Plugin) State(cell *table.Cell) (State, error) {
	f := p.fields[cell.Key()]
	if f == nil {
		return StateIdle, nil
	}
	return f.state, f.err
}

// Results returns the options found by the last completed lookup.
func (p *Plugin) Results(cell *table.Cell) []Option {
	if f := p.fields[cell.Key()]; f != nil {
		return append([]Option(nil), f.results...)
	}
	return nil
}

// MenuItems offers the static options of single-choice cells and a clear
// entry for multi-choice cells.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	if !p.owned(cell) {
		return nil
	}
	if p.Multiple(cell) {
		return []plugin.MenuItem{{
			ID:    "choice:clear",
			Label: "Clear selection",
			Action: func(ctx context.Context, c *table.Cell) error {
				return p.Select(ctx, c)
			},
		}}
	}
	var items []plugin.MenuItem
	for _, opt := range p.Options(cell) {
		value := opt.Value
		items = append(items, plugin.MenuItem{
			ID:    "choice:" + value,
			Label: opt.Label,
			Action: func(ctx context.Context, c *table.Cell) error {
				return p.Select(ctx, c, value)
			},
		})
	}
	return items
}

func (p *Plugin) labels(known []Option, values []string) string {
	labels := make([]string, 0, len(values))
	for _, v := range values {
		label := v
		for _, o := range known {
			if o.Value == v && o.Label != "" {
				label = o.Label
				break
			}
		}
		labels = append(labels, label)
	}
	return strings.Join(labels, ", ")
}

func hasOption(opts []Option, value string) bool {
	for _, o := range opts {
		if o.Value == value {
			return true
		}
	}
	return false
}

func splitValues(s string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range plugin.SplitList(s) {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func joinValues(values []string) string {
	return strings.Join(values, ",")
}

func sameSet(a, b []string) bool {
	return joinValues(a) == joinValues(b)
}
