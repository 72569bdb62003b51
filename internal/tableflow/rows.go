package tableflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
	tferrors "github.com/alexisbeaulieu97/tableflow/pkg/errors"
)

var errNotInitialized = errors.New("host is not initialized")

// AddRow appends or prepends a row. data is a positional []string, a
// map[string]string or map[string]any keyed by column id, or nil; columns
// without data take the header's data-default. The new row starts clean.
// row:added is dispatched before the plugins are refreshed.
func (t *TableFlow) AddRow(ctx context.Context, data any, position string) (*table.Row, error) {
	if t.table == nil {
		return nil, tferrors.NewHostError("add row", errNotInitialized)
	}
	if position == "" {
		position = PositionEnd
	}
	if position != PositionStart && position != PositionEnd {
		return nil, tferrors.NewHostError("add row", fmt.Errorf("unknown position %q", position))
	}

	values, err := t.rowValues(data)
	if err != nil {
		return nil, tferrors.NewHostError("add row", err)
	}

	row := t.table.NewRow(t.table.NextRowID(), values)
	body := t.table.Body()
	if position == PositionStart {
		body.PrependChild(row.Element())
	} else {
		body.AppendChild(row.Element())
	}

	for _, cell := range row.Cells() {
		t.store.Seed(cell.Key(), cell.Display())
		t.table.Reflect(cell)
	}
	t.table.ReflectRow(row)

	t.bus.Dispatch(ctx, events.New(events.RowAdded, events.Detail{
		Row:      row,
		RowID:    row.ID(),
		Position: position,
		Data:     row.Data(),
	}))
	t.RefreshPlugins(ctx)
	return row, nil
}

func (t *TableFlow) rowValues(data any) (map[string]string, error) {
	values := make(map[string]string)
	switch d := data.(type) {
	case nil:
	case []string:
		for i, col := range t.table.Columns() {
			if i < len(d) {
				values[col.ID] = d[i]
			}
		}
	case map[string]string:
		for k, v := range d {
			values[k] = v
		}
	case map[string]any:
		for k, v := range d {
			values[k] = fmt.Sprint(v)
		}
	default:
		return nil, fmt.Errorf("unsupported row data %T", data)
	}
	return values, nil
}

// RemoveRow removes row from the table and drops its state. row:removing and
// row:removed both carry the row's last data.
func (t *TableFlow) RemoveRow(ctx context.Context, row *table.Row) error {
	if t.table == nil {
		return tferrors.NewHostError("remove row", errNotInitialized)
	}
	if row == nil || !row.Attached() {
		return tferrors.NewHostError("remove row", errors.New("row is not part of the table"))
	}

	id := row.ID()
	data := row.Data()
	t.bus.Dispatch(ctx, events.New(events.RowRemoving, events.Detail{Row: row, RowID: id, Data: data}))

	row.Element().Remove()
	t.store.PurgeRow(id)

	t.bus.Dispatch(ctx, events.New(events.RowRemoved, events.Detail{RowID: id, Data: data}))
	return nil
}

// MarkRowAsSaved makes the row's current values its new baseline, lets every
// plugin reset its per-row state, and dispatches row:saved.
func (t *TableFlow) MarkRowAsSaved(ctx context.Context, row *table.Row, opts map[string]any) error {
	if t.table == nil {
		return tferrors.NewHostError("mark row as saved", errNotInitialized)
	}
	if row == nil {
		return tferrors.NewHostError("mark row as saved", errors.New("row is nil"))
	}
	if opts == nil {
		opts = map[string]any{}
	}

	t.store.Baseline(row.ID())
	cells := row.Cells()
	for _, cell := range cells {
		t.table.Reflect(cell)
	}

	for _, entry := range t.entries {
		if !entry.Loaded() {
			continue
		}
		saver, ok := entry.Instance.(plugin.RowSaver)
		if !ok {
			continue
		}
		err := guard(entry.Name, func() error {
			saver.MarkRowAsSaved(row, opts)
			return nil
		})
		if err != nil {
			t.logger.With("plugin", entry.Name).Error(err, "plugin row save failed")
		}
	}

	t.table.ReflectRow(row)

	snapshots := make([]events.CellSnapshot, 0, len(cells))
	for _, cell := range cells {
		snapshots = append(snapshots, events.CellSnapshot{
			ColumnID:     cell.Column().ID,
			Value:        cell.Value(),
			InitialValue: cell.InitialValue(),
		})
	}
	t.bus.Dispatch(ctx, events.New(events.RowSaved, events.Detail{
		Row:   row,
		RowID: row.ID(),
		Data:  row.Data(),
		Cells: snapshots,
	}))
	return nil
}

// IsModified reports whether any cell of the row differs from its baseline
// or a plugin flagged the row.
func (t *TableFlow) IsModified(row *table.Row) bool {
	return row != nil && t.store.RowModified(row.ID())
}

// IsCellModified reports whether the cell differs from its baseline.
func (t *TableFlow) IsCellModified(cell *table.Cell) bool {
	return cell != nil && t.store.CellModified(cell.Key())
}

// RowData returns the row's current values keyed by column id.
func (t *TableFlow) RowData(row *table.Row) map[string]string {
	if row == nil {
		return nil
	}
	return row.Data()
}

// FlagRow sets or clears the plugin-level modified override of a row.
func (t *TableFlow) FlagRow(row *table.Row, on bool) {
	t.store.FlagRow(row.ID(), on)
	t.table.ReflectRow(row)
}

// Claim gives owner exclusive control of cell. A cell without state yet is
// seeded from its displayed text first.
func (t *TableFlow) Claim(cell *table.Cell, owner string) bool {
	if _, ok := t.store.Get(cell.Key()); !ok {
		t.store.Seed(cell.Key(), cell.Display())
	}
	if !t.store.Claim(cell.Key(), owner) {
		return false
	}
	t.table.Reflect(cell)
	return true
}

// SetCellValue writes value as both value and displayed text.
func (t *TableFlow) SetCellValue(ctx context.Context, cell *table.Cell, value, source string) events.Event {
	return t.WriteCell(ctx, cell, plugin.Change{Value: value, Source: source})
}

// WriteCell is the common write path of the plugins: it updates the store,
// reflects the cell and its row, and dispatches cell:change.
func (t *TableFlow) WriteCell(ctx context.Context, cell *table.Cell, change plugin.Change) events.Event {
	key := cell.Key()
	if _, ok := t.store.Get(key); !ok {
		t.store.Seed(key, cell.Display())
	}
	t.store.SetValue(key, change.Value)
	t.store.SetFlag(key, change.Flagged)

	display := change.Display
	if display == "" {
		display = change.Value
	}
	cell.SetDisplay(display)
	t.table.Reflect(cell)
	t.table.ReflectRow(cell.Row())

	detail := events.ForCell(cell, change.Source)
	detail.IsModified = t.store.CellModified(key)
	return t.bus.Dispatch(ctx, events.New(events.CellChange, detail))
}
