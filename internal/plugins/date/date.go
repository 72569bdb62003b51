// Package dateplugin stores th-date cells as ISO dates (2006-01-02) and
// shows them in the column's data-format, written with the tokens YYYY, YY,
// MMMM, MMM, MM, M, DD and D.
package dateplugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "date"

// Marker is the header attribute opting a column in.
const Marker = "date"

// ISO is the layout of stored values.
const ISO = time.DateOnly

// DefaultFormat is the display format of columns without data-format.
const DefaultFormat = "YYYY-MM-DD"

var (
	// ErrNotDate is returned for cells the plugin does not own.
	ErrNotDate = errors.New("cell is not a date cell")
	// ErrInvalidDate is returned for values no known layout accepts.
	ErrInvalidDate = errors.New("invalid date")
)

// fallbackLayouts are tried after the column layout and ISO.
var fallbackLayouts = []string{
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	time.RFC3339,
}

var tokens = []struct{ token, layout string }{
	{"YYYY", "2006"},
	{"YY", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"DD", "02"},
	{"D", "2"},
}

// Layout converts a token format to a Go time layout. Other characters are
// copied as they are.
func Layout(format string) string {
	var b strings.Builder
	for i := 0; i < len(format); {
		matched := false
		for _, t := range tokens {
			if strings.HasPrefix(format[i:], t.token) {
				b.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}
	return b.String()
}

// Parse reads value with layout first, then ISO, then common layouts.
func Parse(value, layout string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, l := range append([]string{layout, ISO}, fallbackLayouts...) {
		if l == "" {
			continue
		}
		if t, err := time.Parse(l, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// PluginOption customizes the plugin.
type PluginOption func(*Plugin)

// WithClock replaces time.Now for the "today" menu entry.
func WithClock(now func() time.Time) PluginOption {
	return func(p *Plugin) { p.now = now }
}

// Plugin is the date plugin.
type Plugin struct {
	host   plugin.Host
	log    *logger.Logger
	now    func() time.Time
	format string
	subs   events.Subscriptions
}

// Factory returns a plugin factory applying opts.
func Factory(opts ...PluginOption) plugin.Factory {
	return func(cfg plugin.Config) (plugin.Plugin, error) {
		p := &Plugin{now: time.Now, format: cfg.String("format", DefaultFormat)}
		for _, opt := range opts {
			opt(p)
		}
		return p, nil
	}
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return Factory()(cfg)
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init claims th-date cells and normalizes their values to ISO.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	for _, row := range host.Table().Rows() {
		p.claimRow(row)
	}
	p.subs.Add(host.Events().Subscribe(events.RowAdded, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Row != nil {
			p.claimRow(ev.Detail.Row)
		}
		return nil
	}))
	return nil
}

func (p *Plugin) claimRow(row *table.Row) {
	for _, cell := range row.Cells() {
		if !cell.Column().Has(Marker) || !p.host.Claim(cell, Name) {
			continue
		}
		value := cell.Value()
		if value == "" {
			continue
		}
		layout := p.Layout(cell.Column())
		t, err := Parse(value, layout)
		if err != nil {
			p.log.WithFields(map[string]any{"row": row.ID(), "column": cell.Column().ID}).Warn(err.Error())
			continue
		}
		iso := t.Format(ISO)
		if st, ok := p.host.Store().Get(cell.Key()); ok && !st.Modified() && st.Value != iso {
			p.host.Store().Seed(cell.Key(), iso)
			p.host.Table().Reflect(cell)
		}
		cell.SetDisplay(t.Format(layout))
	}
}

// Refresh claims cells of rows added since the last scan.
func (p *Plugin) Refresh(context.Context) error {
	for _, row := range p.host.Table().Rows() {
		p.claimRow(row)
	}
	return nil
}

// Destroy unsubscribes.
func (p *Plugin) Destroy() error {
	p.subs.UnsubscribeAll()
	return nil
}

// Layout returns the display layout of col.
func (p *Plugin) Layout(col table.Column) string {
	return Layout(col.Header.AttrOr("data-format", p.format))
}

// Date returns the cell's date. ok is false for empty or invalid values.
func (p *Plugin) Date(cell *table.Cell) (time.Time, bool) {
	t, err := time.Parse(ISO, cell.Value())
	return t, err == nil
}

// SetDate parses value and writes it as an ISO date. An empty value clears
// the cell.
func (p *Plugin) SetDate(ctx context.Context, cell *table.Cell, value string) error {
	if cell == nil || p.host.Store().Owner(cell.Key()) != Name {
		return ErrNotDate
	}
	if strings.TrimSpace(value) == "" {
		p.host.WriteCell(ctx, cell, plugin.Change{Source: events.SourceDate})
		return nil
	}
	layout := p.Layout(cell.Column())
	t, err := Parse(value, layout)
	if err != nil {
		return err
	}
	p.host.WriteCell(ctx, cell, plugin.Change{
		Value:   t.Format(ISO),
		Display: t.Format(layout),
		Source:  events.SourceDate,
	})
	return nil
}

// MenuItems offers today's date and clearing.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	if cell == nil || p.host.Store().Owner(cell.Key()) != Name {
		return nil
	}
	return []plugin.MenuItem{
		{ID: "date:today", Label: "Today", Action: func(ctx context.Context, c *table.Cell) error {
			return p.SetDate(ctx, c, p.now().Format(ISO))
		}},
		{ID: "date:clear", Label: "Clear date", Action: func(ctx context.Context, c *table.Cell) error {
			return p.SetDate(ctx, c, "")
		}},
	}
}
