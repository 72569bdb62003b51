package plugin

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// SpecEntry is one requested plugin.
type SpecEntry struct {
	Name   string
	Config Config
}

// Spec is the ordered list of plugins a host loads. It accepts two shapes:
//
//	names: [edit, sort]
//	edit: {...}
//
// or a flat map of name to configuration, where false disables a plugin:
//
//	edit: {...}
//	sort: true
//	filter: false
type Spec struct {
	entries  []SpecEntry
	disabled []string
}

// Names builds a spec loading the named plugins with empty configuration.
func Names(names ...string) Spec {
	var s Spec
	for _, name := range names {
		s.Add(name, nil)
	}
	return s
}

// FromMap normalizes either accepted shape. Without a names list, keys load
// in sorted order since map order is lost.
func FromMap(m map[string]any) (Spec, error) {
	var s Spec
	if raw, ok := m["names"]; ok {
		names, err := toNames(raw)
		if err != nil {
			return Spec{}, err
		}
		configs := make(map[string]any, len(m))
		for k, v := range m {
			configs[strings.ToLower(k)] = v
		}
		for _, name := range names {
			if err := s.addValue(name, configs[strings.ToLower(name)]); err != nil {
				return Spec{}, err
			}
		}
		return s, nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := s.addValue(k, m[k]); err != nil {
			return Spec{}, err
		}
	}
	return s, nil
}

// Add appends a plugin. Adding a name twice replaces its configuration.
func (s *Spec) Add(name string, cfg Config) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if cfg == nil {
		cfg = Config{}
	}
	for i, e := range s.entries {
		if strings.EqualFold(e.Name, name) {
			s.entries[i].Config = cfg
			return
		}
	}
	s.entries = append(s.entries, SpecEntry{Name: name, Config: cfg})
}

// Disable removes a plugin from the spec.
func (s *Spec) Disable(name string) {
	for i, e := range s.entries {
		if strings.EqualFold(e.Name, name) {
			s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
			break
		}
	}
	s.disabled = append(s.disabled, name)
}

// Entries returns the enabled plugins in load order.
func (s Spec) Entries() []SpecEntry {
	return append([]SpecEntry(nil), s.entries...)
}

// Disabled returns the names explicitly disabled with false.
func (s Spec) Disabled() []string {
	return append([]string(nil), s.disabled...)
}

// Len returns the number of enabled plugins.
func (s Spec) Len() int { return len(s.entries) }

// UnmarshalYAML accepts a sequence of names or either mapping shape. Flat
// mappings keep their declaration order.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	var out Spec
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		out = Names(names...)
	case yaml.MappingNode:
		var m map[string]any
		if err := node.Decode(&m); err != nil {
			return err
		}
		if _, ok := m["names"]; ok {
			spec, err := FromMap(m)
			if err != nil {
				return err
			}
			out = spec
			break
		}
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if err := out.addValue(key, m[key]); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("line %d: plugins must be a list or a mapping", node.Line)
	}
	*s = out
	return nil
}

func (s *Spec) addValue(name string, v any) error {
	switch cfg := v.(type) {
	case nil:
		s.Add(name, nil)
	case bool:
		if cfg {
			s.Add(name, nil)
		} else {
			s.Disable(name)
		}
	case map[string]any:
		s.Add(name, Config(cfg))
	case Config:
		s.Add(name, cfg)
	default:
		return fmt.Errorf("plugin %q: configuration must be a mapping or a boolean, got %T", name, v)
	}
	return nil
}

func toNames(raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		names := make([]string, 0, len(v))
		for _, item := range v {
			name, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("names: expected strings, got %T", item)
			}
			names = append(names, name)
		}
		return names, nil
	default:
		return nil, fmt.Errorf("names: expected a list, got %T", raw)
	}
}
