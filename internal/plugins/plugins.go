// Package plugins registers the built-in table plugins.
package plugins

import (
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	actionsplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/actions"
	choiceplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/choice"
	colorplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/color"
	columnreorderplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/columnreorder"
	contextmenuplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/contextmenu"
	dateplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/date"
	editplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/edit"
	filterplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/filter"
	highlightplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/highlight"
	linetoggleplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/linetoggle"
	reorderplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/reorder"
	selectionplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/selection"
	sortplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/sort"
	validationplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/validation"
)

// Builtins returns the factories of the built-in plugins keyed by name.
func Builtins() map[string]plugin.Factory {
	return map[string]plugin.Factory{
		actionsplugin.Name:       actionsplugin.New,
		choiceplugin.Name:        choiceplugin.New,
		colorplugin.Name:         colorplugin.New,
		columnreorderplugin.Name: columnreorderplugin.New,
		contextmenuplugin.Name:   contextmenuplugin.New,
		dateplugin.Name:          dateplugin.New,
		editplugin.Name:          editplugin.New,
		filterplugin.Name:        filterplugin.New,
		highlightplugin.Name:     highlightplugin.New,
		linetoggleplugin.Name:    linetoggleplugin.New,
		reorderplugin.Name:       reorderplugin.New,
		selectionplugin.Name:     selectionplugin.New,
		sortplugin.Name:          sortplugin.New,
		validationplugin.Name:    validationplugin.New,
	}
}

// Register adds every built-in plugin to r.
func Register(r *plugin.Registry) error {
	for name, f := range Builtins() {
		if err := r.Register(name, f); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in plugins.
func NewRegistry() *plugin.Registry {
	r := plugin.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}
