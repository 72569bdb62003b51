// Package filterplugin hides rows not matching a text filter and pages the
// rest. The filter searches th-filter columns, or every column when none is
// marked.
package filterplugin

import (
	"context"
	"strings"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "filter"

// Marker is the header attribute opting a column into the search.
const Marker = "filter"

// AttrHidden is set on rows that are filtered out or on another page.
const AttrHidden = "hidden"

// Plugin is the filter plugin.
type Plugin struct {
	host     plugin.Host
	log      *logger.Logger
	text     string
	page     int
	pageSize int
	subs     events.Subscriptions
}

// New is the plugin factory. pageSize 0 disables paging.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	size := cfg.Int("pageSize", 0)
	if size < 0 {
		size = 0
	}
	return &Plugin{page: 1, pageSize: size, text: cfg.String("filter", "")}, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init applies the configured filter and first page.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	p.subs.Add(host.Events().Subscribe(events.CellChange, func(context.Context, events.Event) error {
		p.apply()
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.OrderChange, func(context.Context, events.Event) error {
		p.apply()
		return nil
	}))
	p.apply()
	return nil
}

// Refresh re-applies the filter, including rows added since the last run.
func (p *Plugin) Refresh(context.Context) error {
	p.apply()
	return nil
}

// Destroy unsubscribes and shows every row again.
func (p *Plugin) Destroy() error {
	p.subs.UnsubscribeAll()
	for _, row := range p.host.Table().Rows() {
		row.Element().RemoveAttr(AttrHidden)
	}
	return nil
}

// Filter returns the active filter text.
func (p *Plugin) Filter() string { return p.text }

// Page returns the current page, starting at 1.
func (p *Plugin) Page() int { return p.page }

// PageSize returns the page size; 0 means no paging.
func (p *Plugin) PageSize() int { return p.pageSize }

// SetFilter sets the filter text and returns to the first page.
func (p *Plugin) SetFilter(ctx context.Context, text string) {
	p.text = strings.TrimSpace(text)
	p.page = 1
	p.apply()
	p.announce(ctx)
}

// SetPageSize changes the page size and returns to the first page.
func (p *Plugin) SetPageSize(ctx context.Context, size int) {
	if size < 0 {
		size = 0
	}
	p.pageSize = size
	p.page = 1
	p.apply()
	p.announce(ctx)
}

// SetPage moves to page n, clamped to the available pages.
func (p *Plugin) SetPage(ctx context.Context, n int) {
	p.page = n
	p.apply()
	p.announce(ctx)
}

// Matching returns the rows passing the filter, in table order.
func (p *Plugin) Matching() []*table.Row {
	var out []*table.Row
	for _, row := range p.host.Table().Rows() {
		if p.Matches(row) {
			out = append(out, row)
		}
	}
	return out
}

// Pages returns the number of pages; at least 1.
func (p *Plugin) Pages() int {
	if p.pageSize == 0 {
		return 1
	}
	n := len(p.Matching())
	pages := (n + p.pageSize - 1) / p.pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Visible returns the rows shown on the current page.
func (p *Plugin) Visible() []*table.Row {
	matching := p.Matching()
	if p.pageSize == 0 {
		return matching
	}
	start := (p.page - 1) * p.pageSize
	if start >= len(matching) {
		return nil
	}
	end := start + p.pageSize
	if end > len(matching) {
		end = len(matching)
	}
	return matching[start:end]
}

// Matches reports whether row passes the filter.
func (p *Plugin) Matches(row *table.Row) bool {
	if p.text == "" {
		return true
	}
	needle := strings.ToLower(p.text)
	marked := len(p.host.Table().ColumnsWith(Marker)) > 0
	for _, cell := range row.Cells() {
		if marked && !cell.Column().Has(Marker) {
			continue
		}
		if strings.Contains(strings.ToLower(cell.Value()), needle) ||
			strings.Contains(strings.ToLower(cell.Display()), needle) {
			return true
		}
	}
	return false
}

func (p *Plugin) apply() {
	if pages := p.Pages(); p.page > pages {
		p.page = pages
	}
	if p.page < 1 {
		p.page = 1
	}
	visible := make(map[string]bool)
	for _, row := range p.Visible() {
		visible[row.ID()] = true
	}
	for _, row := range p.host.Table().Rows() {
		if visible[row.ID()] {
			row.Element().RemoveAttr(AttrHidden)
		} else {
			row.Element().SetAttr(AttrHidden, "")
		}
	}
}

func (p *Plugin) announce(ctx context.Context) {
	p.host.Events().Dispatch(ctx, events.New(events.FilterChange, events.Detail{
		Extra: map[string]any{
			"filter":   p.text,
			"page":     p.page,
			"pages":    p.Pages(),
			"matching": len(p.Matching()),
		},
	}))
}
