package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// sessionOptions locate the document and configuration a command works on.
type sessionOptions struct {
	HTMLPath   string
	ConfigPath string
	StatePath  string
	Verbose    bool
}

func addSessionFlags(cmd *cobra.Command, opts *sessionOptions) {
	cmd.Flags().StringVar(&opts.HTMLPath, "html", "", "Path to the HTML document holding the table")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringVar(&opts.StatePath, "state", "", "Override the persisted state file (\":memory:\" keeps it in process)")
	cmd.MarkFlagRequired("html")   //nolint:errcheck
	cmd.MarkFlagRequired("config") //nolint:errcheck
}

func validateSessionOptions(opts sessionOptions) error {
	if err := requireFile("html document", opts.HTMLPath); err != nil {
		return err
	}
	return requireFile("config file", opts.ConfigPath)
}

func requireFile(what, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%s is required", what)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s path: %w", what, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("%s does not exist: %w", what, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s path %s is a directory", what, abs)
	}

	return nil
}
