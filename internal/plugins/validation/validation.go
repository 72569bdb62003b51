// Package validationplugin checks cell values against th-validate rules.
//
// Rules are comma-separated validator tags ("required,min=2,max=10",
// "oneof=a b c", "email") or the names of rule functions supplied with
// WithRule. Empty values only fail when the rules include "required".
// Invalid cells get the class "invalid" and a message element; validity is
// reported as a value, never as an error.
package validationplugin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/tableflow/internal/dom"
	"github.com/alexisbeaulieu97/tableflow/internal/events"
	"github.com/alexisbeaulieu97/tableflow/internal/hook"
	"github.com/alexisbeaulieu97/tableflow/internal/logger"
	"github.com/alexisbeaulieu97/tableflow/internal/model"
	"github.com/alexisbeaulieu97/tableflow/internal/plugin"
	"github.com/alexisbeaulieu97/tableflow/internal/table"
)

// Name is the registration name of the plugin.
const Name = "validation"

// Marker is the header attribute holding the rules.
const Marker = "validate"

const (
	// ClassInvalid marks cells failing validation.
	ClassInvalid = "invalid"
	// MessageClass is the class of the message element.
	MessageClass = "validation-message"
)

// Rule is a named check. It returns false and a message for invalid values.
type Rule func(value string) (bool, string)

type columnConfig struct {
	Rules   string `yaml:"rules"`
	Message string `yaml:"message"`
}

type config struct {
	BlockInvalid bool                    `yaml:"blockInvalid"`
	Columns      map[string]columnConfig `yaml:"columns"`
}

// PluginOption customizes the plugin beyond its YAML configuration.
type PluginOption func(*Plugin)

// WithRule makes name usable in rule lists.
func WithRule(name string, rule Rule) PluginOption {
	return func(p *Plugin) { p.rules[name] = rule }
}

// Plugin is the validation plugin.
type Plugin struct {
	host     plugin.Host
	log      *logger.Logger
	validate *validator.Validate
	rules    map[string]Rule
	cfg      config

	invalid map[model.CellKey]string
	subs    events.Subscriptions
	unhook  func()
}

// Factory returns a plugin factory applying opts.
func Factory(opts ...PluginOption) plugin.Factory {
	return func(cfg plugin.Config) (plugin.Plugin, error) {
		return newPlugin(cfg, opts...)
	}
}

// New is the plugin factory with the built-in rules only.
func New(cfg plugin.Config) (plugin.Plugin, error) {
	return newPlugin(cfg)
}

func newPlugin(cfg plugin.Config, opts ...PluginOption) (*Plugin, error) {
	p := &Plugin{
		validate: newValidator(),
		rules:    make(map[string]Rule),
		invalid:  make(map[model.CellKey]string),
	}
	if err := cfg.Decode(&p.cfg); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("date_iso", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.DateOnly, fl.Field().String())
		return err == nil
	})
	return v
}

// Name returns the registration name.
func (p *Plugin) Name() string { return Name }

// Init subscribes to cell changes and, with blockInvalid, vetoes saves of
// invalid values.
func (p *Plugin) Init(_ context.Context, host plugin.Host) error {
	p.host = host
	p.log = host.Logger().With("plugin", Name)

	p.subs.Add(host.Events().Subscribe(events.CellChange, func(ctx context.Context, ev events.Event) error {
		if ev.Detail.Cell != nil {
			p.check(ctx, ev.Detail.Cell)
		}
		return nil
	}))
	p.subs.Add(host.Events().Subscribe(events.RowRemoved, func(_ context.Context, ev events.Event) error {
		for key := range p.invalid {
			if key.RowID == ev.Detail.RowID {
				delete(p.invalid, key)
			}
		}
		return nil
	}))

	if p.cfg.BlockInvalid {
		p.unhook = host.Hooks().Register(hook.BeforeSave, func(ctx context.Context, args ...any) (any, error) {
			cell, value, ok := saveArgs(args)
			if !ok || !p.Validates(cell) {
				return nil, nil
			}
			valid, msg := p.ValidateValue(cell, value)
			p.mark(ctx, cell, valid, msg)
			return valid, nil
		}, hook.WithLabel(Name))
	}
	return nil
}

func saveArgs(args []any) (*table.Cell, string, bool) {
	if len(args) < 2 {
		return nil, "", false
	}
	cell, ok := args[0].(*table.Cell)
	if !ok || cell == nil {
		return nil, "", false
	}
	value, ok := args[1].(string)
	return cell, value, ok
}

// Destroy removes the save hook and every mark.
func (p *Plugin) Destroy() error {
	if p.unhook != nil {
		p.unhook()
		p.unhook = nil
	}
	p.subs.UnsubscribeAll()
	for key := range p.invalid {
		if cell := p.host.Table().Cell(key.RowID, key.ColumnID); cell != nil {
			clearMark(cell)
		}
		delete(p.invalid, key)
	}
	return nil
}

// Validates reports whether the cell's column has rules.
func (p *Plugin) Validates(cell *table.Cell) bool {
	return cell != nil && p.columnRules(cell.Column()) != ""
}

func (p *Plugin) columnRules(col table.Column) string {
	if cc, ok := p.cfg.Columns[col.ID]; ok && cc.Rules != "" {
		return cc.Rules
	}
	rules, _ := col.Marker(Marker)
	return strings.TrimSpace(rules)
}

// Validate checks the cell's current value and updates its marks.
func (p *Plugin) Validate(cell *table.Cell) (bool, string) {
	return p.check(context.Background(), cell)
}

func (p *Plugin) check(ctx context.Context, cell *table.Cell) (bool, string) {
	if !p.Validates(cell) {
		return true, ""
	}
	valid, msg := p.ValidateValue(cell, cell.Value())
	p.mark(ctx, cell, valid, msg)
	return valid, msg
}

// ValidateRow validates every cell of row and returns the messages of the
// invalid ones keyed by column id.
func (p *Plugin) ValidateRow(row *table.Row) (bool, map[string]string) {
	failed := make(map[string]string)
	for _, cell := range row.Cells() {
		if ok, msg := p.Validate(cell); !ok {
			failed[cell.Column().ID] = msg
		}
	}
	return len(failed) == 0, failed
}

// Invalid returns the number of cells currently marked invalid.
func (p *Plugin) Invalid() int { return len(p.invalid) }

// ValidateValue checks value against the cell's rules without touching the
// document.
func (p *Plugin) ValidateValue(cell *table.Cell, value string) (bool, string) {
	col := cell.Column()
	tags := plugin.SplitList(p.columnRules(col))
	if strings.TrimSpace(value) == "" && !contains(tags, "required") {
		return true, ""
	}

	for _, tag := range tags {
		name, _, _ := strings.Cut(tag, "=")
		if rule, ok := p.rules[name]; ok {
			if valid, msg := rule(value); !valid {
				return false, p.message(col, msg)
			}
			continue
		}
		if err := p.runTag(value, tag); err != nil {
			var verrs validator.ValidationErrors
			if errors.As(err, &verrs) && len(verrs) > 0 {
				return false, p.message(col, describe(verrs[0]))
			}
			p.log.WithFields(map[string]any{"column": col.ID, "rule": tag}).Warn(err.Error())
		}
	}
	return true, ""
}

// runTag evaluates one validator tag. Unknown tags panic inside the
// validator; they are reported as errors instead.
func (p *Plugin) runTag(value, tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid rule %q: %v", tag, r)
		}
	}()
	return p.validate.Var(value, tag)
}

func (p *Plugin) message(col table.Column, msg string) string {
	if cc, ok := p.cfg.Columns[col.ID]; ok && cc.Message != "" {
		return cc.Message
	}
	if custom, ok := col.Header.Attr("data-validate-message"); ok && custom != "" {
		return custom
	}
	return msg
}

func (p *Plugin) mark(ctx context.Context, cell *table.Cell, valid bool, msg string) {
	key := cell.Key()
	prev, wasInvalid := p.invalid[key]

	if valid {
		clearMark(cell)
		delete(p.invalid, key)
	} else {
		clearMark(cell)
		cell.Element().AddClass(ClassInvalid)
		span := dom.NewElement("span")
		span.AddClass(MessageClass)
		span.SetText(msg)
		cell.Decorate(span)
		p.invalid[key] = msg
	}

	if wasInvalid == !valid && prev == msg {
		return
	}
	detail := events.ForCell(cell, "")
	detail.Extra = map[string]any{"valid": valid, "message": msg}
	p.host.Events().Dispatch(ctx, events.New(events.ValidationChange, detail))
}

func clearMark(cell *table.Cell) {
	cell.Element().RemoveClass(ClassInvalid)
	for span := cell.Element().FindByClass(MessageClass); span != nil; span = cell.Element().FindByClass(MessageClass) {
		span.Remove()
	}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "a value is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "email":
		return "must be an email address"
	case "url":
		return "must be a URL"
	case "numeric", "number":
		return "must be a number"
	case "alpha":
		return "must contain letters only"
	case "alphanum":
		return "must contain letters and digits only"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "date_iso":
		return "must be a date (YYYY-MM-DD)"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
