// Package colorplugin stores th-color cells as #rrggbb values and shows a
// swatch next to them.
package colorplugin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "color"

// Marker is the header attribute opting a column in.
const Marker = "color"

// SwatchClass is the class of the swatch element.
const SwatchClass = "color-swatch"

var (
	// ErrNotColor is returned for cells the plugin does not own.
	ErrNotColor = errors.New("cell is not a color cell")
	// ErrInvalidColor is returned for values that are not colors.
	ErrInvalidColor = errors.New("invalid color")
)

var named = map[string]string{
	"black":  "#000000",
	"white":  "#ffffff",
	"red":    "#ff0000",
	"green":  "#008000",
	"blue":   "#0000ff",
	"yellow": "#ffff00",
	"orange": "#ffa500",
	"purple": "#800080",
	"gray":   "#808080",
	"grey":   "#808080",
}

// Normalize converts a hex (#rgb, #rrggbb, with or without #), rgb(r, g, b)
// or basic named color to lowercase #rrggbb.
func Normalize(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidColor)
	}
	if hex, ok := named[v]; ok {
		return hex, nil
	}
	if strings.HasPrefix(v, "rgb(") {
		var r, g, b uint8
		if _, err := fmt.Sscanf(strings.ReplaceAll(v, " ", ""), "rgb(%d,%d,%d)", &r, &g, &b); err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidColor, value)
		}
		return colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}.Hex(), nil
	}
	if !strings.HasPrefix(v, "#") {
		v = "#" + v
	}
	c, err := colorful.Hex(v)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, value)
	}
	return c.Hex(), nil
}

// Plugin is the color plugin.
type Plugin struct {
	host plugin.Host
	log  *logger.Logger
	subs events.Subscriptions
}

// New is the plugin factory.
func New(plugin.Config) (plugin.Plugin, error) {
	return &Plugin{}, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init claims th-color cells, normalizes their values and adds swatches.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	for _, row := range host.Table().Rows() {
		p.claimRow(row)
	}
	p.subs.Add(host.Events().Subscribe(events.RowAdded, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Row != nil {
			p.claimRow(ev.Detail.Row)
		}
		return nil
	}))
	return nil
}

func (p *Plugin) claimRow(row *table.Row) {
	for _, cell := range row.Cells() {
		if !cell.Column().Has(Marker) || !p.host.Claim(cell, Name) {
			continue
		}
		value := cell.Value()
		if value == "" {
			continue
		}
		hex, err := Normalize(value)
		if err != nil {
			p.log.WithFields(map[string]any{"row": row.ID(), "column": cell.Column().ID}).Warn(err.Error())
			continue
		}
		if st, ok := p.host.Store().Get(cell.Key()); ok && !st.Modified() && hex != value {
			p.host.Store().Seed(cell.Key(), hex)
			cell.SetDisplay(hex)
			p.host.Table().Reflect(cell)
		}
		p.swatch(cell, hex)
	}
}

// Refresh claims cells of rows added since the last scan.
func (p *Plugin) Refresh(context.Context) error {
	for _, row := range p.host.Table().Rows() {
		p.claimRow(row)
	}
	return nil
}

// Destroy unsubscribes.
func (p *Plugin) Destroy() error {
	p.subs.UnsubscribeAll()
	return nil
}

// SetColor normalizes value and writes it to cell.
func (p *Plugin) SetColor(ctx context.Context, cell *table.Cell, value string) error {
	if cell == nil || p.host.Store().Owner(cell.Key()) != Name {
		return ErrNotColor
	}
	hex, err := Normalize(value)
	if err != nil {
		return err
	}
	p.host.WriteCell(ctx, cell, plugin.Change{Value: hex, Source: events.SourceColor})
	p.swatch(cell, hex)
	return nil
}

// MenuItems offers resetting a changed color.
func (p *Plugin) MenuItems(cell *table.Cell) []plugin.MenuItem {
	if cell == nil || p.host.Store().Owner(cell.Key()) != Name || cell.Value() == cell.InitialValue() {
		return nil
	}
	return []plugin.MenuItem{{
		ID:    "color:reset",
		Label: "Reset color",
		Action: func(ctx context.Context, c *table.Cell) error {
			return p.SetColor(ctx, c, c.InitialValue())
		},
	}}
}

func (p *Plugin) swatch(cell *table.Cell, hex string) {
	el := cell.Element().FindByClass(SwatchClass)
	if el == nil {
		el = dom.NewElement("span")
		el.AddClass(SwatchClass)
		cell.Decorate(el)
	}
	el.SetStyle("background-color", hex)
}
