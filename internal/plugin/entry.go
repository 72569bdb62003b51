package plugin

// Entry is the host's record of one requested plugin. A non-nil Err means
// the plugin is inert: lookups return nil and refreshes skip it.
type Entry struct {
	Name         string
	Instance     Plugin
	Config       Config
	Dependencies []string
	Err          error
}

// Loaded reports whether the plugin initialized successfully.
func (e *Entry) Loaded() bool {
	return e != nil && e.Err == nil && e.Instance != nil
}
