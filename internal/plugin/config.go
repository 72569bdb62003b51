package plugin

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration block of one plugin.
type Config map[string]any

// Clone returns a shallow copy of the configuration.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Decode fills out, a pointer to a struct with yaml tags, from the config.
func (c Config) Decode(out any) error {
	if len(c) == 0 {
		return nil
	}
	data, err := yaml.Marshal(map[string]any(c))
	if err != nil {
		return fmt.Errorf("encode plugin config: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode plugin config: %w", err)
	}
	return nil
}

// Bool returns a boolean option.
func (c Config) Bool(key string, fallback bool) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// String returns a string option.
func (c Config) String(key, fallback string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return fallback
}

// Int returns an integer option.
func (c Config) Int(key string, fallback int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// Duration returns a duration option given as a Go duration string or as
// milliseconds.
func (c Config) Duration(key string, fallback time.Duration) time.Duration {
	switch v := c[key].(type) {
	case time.Duration:
		return v
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if ms := c.Int(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// Strings returns a list option. A comma separated string is split.
func (c Config) Strings(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return SplitList(v)
	}
	return nil
}

// SplitList splits a comma separated attribute value, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
