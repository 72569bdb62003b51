package config

import (
	"io"

	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/storage"
	"github.com/alexisbeaulieu97/tableflow/internal/tableflow"
)

// MemoryStorage selects the in-process store instead of a state file.
const MemoryStorage = ":memory:"

// Config represents a TableFlow host configuration document.
type Config struct {
	TableID          string      `yaml:"tableId" validate:"required,table_id"`
	Plugins          plugin.Spec `yaml:"plugins,omitempty"`
	PluginsPath      string      `yaml:"pluginsPath,omitempty"`
	Debug            bool        `yaml:"debug,omitempty"`
	CellWrapperClass string      `yaml:"cellWrapperClass,omitempty" validate:"omitempty,css_class"`
	HeadWrapperClass string      `yaml:"headWrapperClass,omitempty" validate:"omitempty,css_class"`
	Log              Log         `yaml:"log,omitempty"`
	Storage          Storage     `yaml:"storage,omitempty"`
}

// Log configures the host logger.
type Log struct {
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	Human bool   `yaml:"human,omitempty"`
}

// Storage configures where persisted table state lives. An empty path uses
// the default state file; MemoryStorage keeps state in process.
type Storage struct {
	Path string `yaml:"path,omitempty"`
}

// HostOptions converts the document into host construction options.
func (c *Config) HostOptions() tableflow.Options {
	return tableflow.Options{
		TableID:          c.TableID,
		Plugins:          c.Plugins,
		PluginsPath:      c.PluginsPath,
		Debug:            c.Debug,
		CellWrapperClass: c.CellWrapperClass,
		HeadWrapperClass: c.HeadWrapperClass,
	}
}

// NewLogger builds the logger described by the log section.
func (c *Config) NewLogger(w io.Writer) (*logger.Logger, error) {
	level := c.Log.Level
	if c.Debug {
		level = "debug"
	}
	return logger.New(logger.Options{Level: level, HumanReadable: c.Log.Human, Writer: w})
}

// OpenStorage opens the store described by the storage section.
func (c *Config) OpenStorage() (storage.Store, error) {
	switch c.Storage.Path {
	case MemoryStorage:
		return storage.NewMemory(), nil
	case "":
		path, err := storage.DefaultPath()
		if err != nil {
			return nil, err
		}
		return storage.NewFile(path)
	default:
		return storage.NewFile(c.Storage.Path)
	}
}
