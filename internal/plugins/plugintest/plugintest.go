// Package plugintest builds hosts over inline markup for plugin tests.
package plugintest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/tableflow"
)

// TableID is the id the helpers expect on the fixture table.
const TableID = "grid"

// Plugin is one plugin to load, in order.
type Plugin struct {
	Name    string
	Factory plugin.Factory
	Config  plugin.Config
}

// New parses markup and returns an initialized host with plugins loaded.
func New(t testing.TB, markup string, plugins ...Plugin) *tableflow.TableFlow {
	t.Helper()
	return NewWith(t, markup, nil, plugins...)
}

// NewWith is New with extra host options.
func NewWith(t testing.TB, markup string, opts []tableflow.Option, plugins ...Plugin) *tableflow.TableFlow {
	t.Helper()

	doc, err := dom.ParseString(markup)
	require.NoError(t, err)

	reg := plugin.NewRegistry()
	var spec plugin.Spec
	for _, p := range plugins {
		require.NoError(t, reg.Register(p.Name, p.Factory))
		spec.Add(p.Name, p.Config)
	}

	host, err := tableflow.New(tableflow.Options{TableID: TableID, Plugins: spec}, reg,
		append([]tableflow.Option{tableflow.WithDocument(doc)}, opts...)...)
	require.NoError(t, err)
	require.NoError(t, host.Init(context.Background()))
	t.Cleanup(host.Destroy)
	return host
}

// Recorder collects dispatched events.
type Recorder struct {
	Events []events.Event
}

// Record subscribes a recorder to the named events.
func Record(host plugin.Host, names ...string) *Recorder {
	r := &Recorder{}
	for _, name := range names {
		host.Events().Subscribe(name, func(_ context.Context, ev events.Event) error {
			r.Events = append(r.Events, ev)
			return nil
		})
	}
	return r
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []events.Event {
	var out []events.Event
	for _, ev := range r.Events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}
