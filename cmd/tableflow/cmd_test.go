package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/tableflow/internal/plugins"
)

const testDocument = `<!DOCTYPE html>
<html><body>
<table id="orders">
<thead><tr>
<th id="item" th-sort>Item</th>
<th id="qty" th-edit th-validate="required,numeric">Qty</th>
<th id="status" th-choice data-choices="open:Open,closed:Closed">Status</th>
<th id="ops" th-actions>Actions</th>
</tr></thead>
<tbody>
<tr id="r1"><td>Widget</td><td>4</td><td>open</td><td></td></tr>
<tr id="r2"><td>Gadget</td><td>7</td><td>closed</td><td></td></tr>
</tbody>
</table>
</body></html>`

const testConfig = `tableId: orders
storage:
  path: ":memory:"
log:
  level: error
plugins:
  edit: {}
  choice: {}
  validation: {}
  actions: {}
  sort: {}
`

func newTestApp() *AppContext {
	return &AppContext{Registry: plugins.NewRegistry()}
}

func writeFixtures(t *testing.T) (htmlPath, configPath string) {
	t.Helper()

	dir := t.TempDir()
	htmlPath = filepath.Join(dir, "orders.html")
	configPath = filepath.Join(dir, "tableflow.yaml")
	require.NoError(t, os.WriteFile(htmlPath, []byte(testDocument), 0o600))
	require.NoError(t, os.WriteFile(configPath, []byte(testConfig), 0o600))
	return htmlPath, configPath
}

func executeCommand(root *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}
