// Package highlightplugin colors cells matching value rules and marks
// modified cells.
//
// Rules come from the plugin configuration or from th-highlight headers, a
// semicolon-separated list of "operator:value:color[:class]" entries. The
// first matching rule of a column wins.
package highlightplugin

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/hook"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/model"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	colorplugin "github.com/alexisbeaulieu97/tableflow/internal/plugins/color"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "highlight"

// Marker is the header attribute holding inline rules.
const Marker = "highlight"

const (
	// ClassHighlight is applied to matching cells whose rule names no class.
	ClassHighlight = "highlighted"
	// ClassModified marks cells differing from their saved value.
	ClassModified = "cell-modified"
)

// Rule highlights cells of Column whose value satisfies Operator and Value.
type Rule struct {
	Column   string `yaml:"column"`
	Operator string `yaml:"operator"`
	Value    string `yaml:"value"`
	Color    string `yaml:"color"`
	Class    string `yaml:"class"`
}

// Matches evaluates the rule against value. Ordering operators compare
// numerically when both sides are numbers.
func (r Rule) Matches(value string) bool {
	switch r.Operator {
	case "eq", "==", "=":
		return value == r.Value
	case "ne", "!=":
		return value != r.Value
	case "contains":
		return strings.Contains(strings.ToLower(value), strings.ToLower(r.Value))
	case "empty":
		return strings.TrimSpace(value) == ""
	case "notempty":
		return strings.TrimSpace(value) != ""
	case "gt", ">":
		return compare(value, r.Value) > 0
	case "gte", ">=":
		return compare(value, r.Value) >= 0
	case "lt", "<":
		return compare(value, r.Value) < 0
	case "lte", "<=":
		return compare(value, r.Value) <= 0
	default:
		return false
	}
}

func compare(a, b string) int {
	x, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	y, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if errA == nil && errB == nil {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// ParseRules parses an inline th-highlight value for column.
func ParseRules(column, raw string) ([]Rule, error) {
	var rules []Rule
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) < 3 || len(parts) > 4 {
			return nil, fmt.Errorf("highlight rule %q: want operator:value:color[:class]", item)
		}
		r := Rule{Column: column, Operator: parts[0], Value: parts[1], Color: parts[2]}
		if len(parts) == 4 {
			r.Class = parts[3]
		}
		rules = append(rules, r)
	}
	return rules, nil
}

type config struct {
	Rules        []Rule `yaml:"rules"`
	MarkModified *bool  `yaml:"markModified"`
}

type applied struct {
	class string
	color bool
}

// Plugin is the highlight plugin.
type Plugin struct {
	host         plugin.Host
	log          *logger.Logger
	configured   []Rule
	rules        map[string][]Rule
	markModified bool

	applied map[model.CellKey]applied
	subs    events.Subscriptions
	unhook  func()
}

// New is the plugin factory.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	var c config
	if err := cfg.Decode(&c); err != nil {
		return nil, err
	}
	p := &Plugin{
		configured:   c.Rules,
		markModified: c.MarkModified == nil || *c.MarkModified,
		applied:      make(map[model.CellKey]applied),
	}
	return p, nil
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init collects rules and highlights the table. Values committed by an
// editor are highlighted as they are rendered, whichever plugin loads first.
func (p *Plugin) Init(ctx context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)
	p.collect()

	p.unhook = host.Hooks().Register(hook.OnRender, hook.Observer(func(_ context.Context, args ...any) {
		if len(args) == 0 {
			return
		}
		if rc, ok := args[0].(*plugin.RenderContext); ok && rc.Cell != nil {
			p.applyValue(rc.Cell, rc.Value)
		}
	}), hook.WithLabel(Name))

	p.subs.Add(host.Events().Subscribe(events.CellChange, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Cell != nil {
			p.apply(ev.Detail.Cell)
		}
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.RowSaved, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Row != nil {
			p.applyRow(ev.Detail.Row)
		}
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.RowAdded, func(_ context.Context, ev events.Event) error {
		if ev.Detail.Row != nil {
			p.applyRow(ev.Detail.Row)
		}
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.RowRemoved, func(_ context.Context, ev events.Event) error {
		for key := range p.applied {
			if key.RowID == ev.Detail.RowID {
				delete(p.applied, key)
			}
		}
		return nil
	}))

	return p.Refresh(ctx)
}

func (p *Plugin) collect() {
	p.rules = make(map[string][]Rule)
	add := func(r Rule) {
		if r.Color != "" {
			hex, err := colorplugin.Normalize(r.Color)
			if err != nil {
				p.log.WithFields(map[string]any{"column": r.Column}).Warn(err.Error())
				r.Color = ""
			} else {
				r.Color = hex
			}
		}
		p.rules[r.Column] = append(p.rules[r.Column], r)
	}
	for _, r := range p.configured {
		add(r)
	}
	for _, col := range p.host.Table().ColumnsWith(Marker) {
		raw, _ := col.Marker(Marker)
		rules, err := ParseRules(col.ID, raw)
		if err != nil {
			p.log.WithFields(map[string]any{"column": col.ID}).Warn(err.Error())
			continue
		}
		for _, r := range rules {
			add(r)
		}
	}
}

// Rules returns the effective rules of column.
func (p *Plugin) Rules(column string) []Rule {
	return append([]Rule(nil), p.rules[column]...)
}

// Refresh re-applies every rule to every cell.
func (p *Plugin) Refresh(context.Context) error {
	for _, row := range p.host.Table().Rows() {
		p.applyRow(row)
	}
	return nil
}

// Destroy removes the render hook and every highlight.
func (p *Plugin) Destroy() error {
	if p.unhook != nil {
		p.unhook()
		p.unhook = nil
	}
	p.subs.UnsubscribeAll()
	for _, row := range p.host.Table().Rows() {
		for _, cell := range row.Cells() {
			p.clear(cell)
			cell.Element().RemoveClass(ClassModified)
		}
	}
	return nil
}

func (p *Plugin) applyRow(row *table.Row) {
	for _, cell := range row.Cells() {
		p.apply(cell)
	}
}

func (p *Plugin) apply(cell *table.Cell) {
	p.applyValue(cell, cell.Value())
}

func (p *Plugin) applyValue(cell *table.Cell, value string) {
	if p.markModified {
		cell.Element().ToggleClass(ClassModified, p.host.Store().CellModified(cell.Key()))
	}

	p.clear(cell)
	for _, r := range p.rules[cell.Column().ID] {
		if !r.Matches(value) {
			continue
		}
		a := applied{class: r.Class, color: r.Color != ""}
		if a.class == "" {
			a.class = ClassHighlight
		}
		cell.Element().AddClass(a.class)
		if a.color {
			cell.Element().SetStyle("background-color", r.Color)
		}
		p.applied[cell.Key()] = a
		return
	}
}

func (p *Plugin) clear(cell *table.Cell) {
	a, ok := p.applied[cell.Key()]
	if !ok {
		return
	}
	cell.Element().RemoveClass(a.class)
	if a.color {
		cell.Element().RemoveStyle("background-color")
	}
	delete(p.applied, cell.Key())
}
