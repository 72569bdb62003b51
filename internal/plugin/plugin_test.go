package plugin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	tferrors "github.com/alexisbeaulieu97/tableflow/pkg/errors"
)

type stubPlugin struct{ name string }

func (s *stubPlugin) Name() string                     { return s.name }
func (s *stubPlugin) Init(context.Context, Host) error { return nil }

func stubFactory(name string) Factory {
	return func(Config) (Plugin, error) { return &stubPlugin{name: name}, nil }
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("ColumnReorder", stubFactory("ColumnReorder")))

	f, err := r.Lookup("columnreorder")
	require.NoError(t, err)
	p, err := f(nil)
	require.NoError(t, err)
	require.Equal(t, "ColumnReorder", p.Name())

	require.Equal(t, []string{"ColumnReorder"}, r.Names())
}

func TestRegistryRejectsDuplicatesAndNil(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Register("edit", stubFactory("edit")))

	err := r.Register("EDIT", stubFactory("edit"))
	var pluginErr *tferrors.PluginError
	require.ErrorAs(t, err, &pluginErr)
	require.Equal(t, "EDIT", pluginErr.Plugin)

	require.Error(t, r.Register("sort", nil))
	require.Error(t, r.Register(" ", stubFactory("x")))
	require.Panics(t, func() { r.MustRegister("edit", stubFactory("edit")) })
}

func TestRegistryLookupMissing(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry().Lookup("ghost")
	var notFound ErrPluginNotFound
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "ghost", notFound.Name)
}

func TestSpecFromNamesList(t *testing.T) {
	t.Parallel()

	spec, err := FromMap(map[string]any{
		"names":  []any{"Edit", "sort"},
		"edit":   map[string]any{"debug": true},
		"filter": map[string]any{"pageSize": 5},
	})
	require.NoError(t, err)

	entries := spec.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "Edit", entries[0].Name)
	require.Equal(t, Config{"debug": true}, entries[0].Config)
	require.Equal(t, "sort", entries[1].Name)
	require.Empty(t, entries[1].Config)
}

func TestSpecFromFlatMap(t *testing.T) {
	t.Parallel()

	spec, err := FromMap(map[string]any{
		"sort":   true,
		"edit":   map[string]any{},
		"filter": false,
		"color":  nil,
	})
	require.NoError(t, err)

	var names []string
	for _, e := range spec.Entries() {
		names = append(names, e.Name)
	}
	require.Equal(t, []string{"color", "edit", "sort"}, names)
	require.Equal(t, []string{"filter"}, spec.Disabled())

	_, err = FromMap(map[string]any{"edit": 3})
	require.Error(t, err)
	_, err = FromMap(map[string]any{"names": "edit"})
	require.Error(t, err)
}

func TestSpecUnmarshalYAMLKeepsDeclarationOrder(t *testing.T) {
	t.Parallel()

	var doc struct {
		Plugins Spec `yaml:"plugins"`
	}
	input := `
plugins:
  sort: {}
  edit:
    blockInvalid: true
  filter: false
  actions: true
`
	require.NoError(t, yaml.Unmarshal([]byte(input), &doc))

	entries := doc.Plugins.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "sort", entries[0].Name)
	require.Equal(t, "edit", entries[1].Name)
	require.Equal(t, true, entries[1].Config["blockInvalid"])
	require.Equal(t, "actions", entries[2].Name)
	require.Equal(t, []string{"filter"}, doc.Plugins.Disabled())
}

func TestSpecUnmarshalYAMLSequence(t *testing.T) {
	t.Parallel()

	var spec Spec
	require.NoError(t, yaml.Unmarshal([]byte("[edit, sort, edit]"), &spec))
	require.Equal(t, 2, spec.Len())

	require.Error(t, yaml.Unmarshal([]byte(`"edit"`), &spec))
}

func TestConfigAccessors(t *testing.T) {
	t.Parallel()

	cfg := Config{
		"autoSave": "true",
		"pageSize": 25,
		"delay":    "150ms",
		"wait":     40,
		"url":      "http://example.test",
		"values":   []any{"a", "b"},
		"csv":      "x, y,,z",
	}

	require.True(t, cfg.Bool("autoSave", false))
	require.True(t, cfg.Bool("missing", true))
	require.Equal(t, 25, cfg.Int("pageSize", 10))
	require.Equal(t, 10, cfg.Int("missing", 10))
	require.Equal(t, 150*time.Millisecond, cfg.Duration("delay", time.Second))
	require.Equal(t, 40*time.Millisecond, cfg.Duration("wait", time.Second))
	require.Equal(t, time.Second, cfg.Duration("missing", time.Second))
	require.Equal(t, "http://example.test", cfg.String("url", ""))
	require.Equal(t, []string{"a", "b"}, cfg.Strings("values"))
	require.Equal(t, []string{"x", "y", "z"}, cfg.Strings("csv"))

	clone := cfg.Clone()
	clone["pageSize"] = 1
	require.Equal(t, 25, cfg.Int("pageSize", 0))
}

func TestConfigDecode(t *testing.T) {
	t.Parallel()

	var opts struct {
		PageSize int      `yaml:"pageSize"`
		Columns  []string `yaml:"columns"`
	}
	cfg := Config{"pageSize": 3, "columns": []any{"name"}}
	require.NoError(t, cfg.Decode(&opts))
	require.Equal(t, 3, opts.PageSize)
	require.Equal(t, []string{"name"}, opts.Columns)

	require.NoError(t, Config(nil).Decode(&opts))
	require.Error(t, Config{"pageSize": "many"}.Decode(&opts))
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	require.Contains(t, ErrCircularDependency{Cycle: []string{"a", "b"}}.Error(), "a -> b -> a")
	require.Contains(t, ErrCircularDependency{}.Error(), "circular dependency")
	require.Contains(t, ErrMissingDependency{Plugin: "a", Dependency: "b"}.Error(), "'b'")

	inner := errors.New("boom")
	err := ErrDependencyFailed{Plugin: "a", Dependency: "b", Err: inner}
	require.ErrorIs(t, err, inner)
	require.Contains(t, err.Error(), "dependency 'b' failed")
}

func TestRefreshReportOK(t *testing.T) {
	t.Parallel()

	require.True(t, RefreshReport{Refreshed: []string{"a"}}.OK())
	require.False(t, RefreshReport{Failed: map[string]error{"a": errors.New("x")}}.OK())
}

func TestEntryLoaded(t *testing.T) {
	t.Parallel()

	var nilEntry *Entry
	require.False(t, nilEntry.Loaded())
	require.True(t, (&Entry{Instance: &stubPlugin{}}).Loaded())
	require.False(t, (&Entry{Instance: &stubPlugin{}, Err: errors.New("x")}).Loaded())
}
