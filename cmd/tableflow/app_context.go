package main

import (
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
)

// AppContext bundles long-lived services created at startup.
type AppContext struct {
	Registry *plugin.Registry
}
