// Package linetoggleplugin marks rows whose th-linetoggle cell holds one of
// the listed values, e.g. th-linetoggle="done,cancelled".
package linetoggleplugin

import (
	"context"
	"strings"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "linetoggle"

// Marker is the header attribute listing the toggling values.
const Marker = "linetoggle"

// ClassToggled marks matching rows.
const ClassToggled = "line-toggled"

// Plugin is the line toggle plugin.
type Plugin struct {
	host plugin.Host
	subs events.Subscriptions
}

// New is the plugin factory.
func New(plugin.Config) (plugin.Plugin, error) {
	return &Plugin{}, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init marks the matching rows and follows changes.
func (p *Plugin) Init(ctx context.Context, host plugin.Host) error {
	p.host = host
	rowHandler := func(_ context.Context, ev events.Event) error {
		if ev.Detail.Row != nil {
			p.apply(ev.Detail.Row)
		}
		return nil
	}
	p.subs.Add(host.Events().Subscribe(events.CellChange, rowHandler))
	p.subs.Add(host.Events().Subscribe(events.RowSaved, rowHandler))
	p.subs.Add(host.Events().Subscribe(events.RowAdded, rowHandler))
	return p.Refresh(ctx)
}

// Refresh re-evaluates every row.
func (p *Plugin) Refresh(context.Context) error {
	for _, row := range p.host.Table().Rows() {
		p.apply(row)
	}
	return nil
}

// Destroy unsubscribes and removes the marks.
func (p *Plugin) Destroy() error {
	p.subs.UnsubscribeAll()
	for _, row := range p.host.Table().Rows() {
		row.Element().RemoveClass(ClassToggled)
	}
	return nil
}

// Toggled reports whether row matches.
func (p *Plugin) Toggled(row *table.Row) bool {
	for _, cell := range row.Cells() {
		raw, ok := cell.Column().Marker(Marker)
		if !ok {
			continue
		}
		value := strings.TrimSpace(cell.Value())
		for _, v := range plugin.SplitList(raw) {
			if strings.EqualFold(v, value) {
				return true
			}
		}
	}
	return false
}

func (p *Plugin) apply(row *table.Row) {
	row.Element().ToggleClass(ClassToggled, p.Toggled(row))
}
