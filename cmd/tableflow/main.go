package main

import (
	"fmt"
	"os"

	"github.com/alexisbeaulieu97/tableflow/internal/plugins"
)

func main() {
	app := &AppContext{Registry: plugins.NewRegistry()}

	if err := newRootCmd(app).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
