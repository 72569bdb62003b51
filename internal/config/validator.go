package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	tferrors "github.com/alexisbeaulieu97/tableflow/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	tableIDPattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_:.-]*$`)
	cssClassPattern = regexp.MustCompile(`^-?[_a-zA-Z][_a-zA-Z0-9-]*$`)
	pluginPattern   = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("table_id", func(fl validator.FieldLevel) bool {
			return tableIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("css_class", func(fl validator.FieldLevel) bool {
			return cssClassPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// GetValidator returns the shared validator instance used by the config package.
func GetValidator() *validator.Validate {
	return validatorInstance()
}

// ValidateConfig performs schema and cross-field validation on the configuration.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return tferrors.NewValidationError("config", "configuration is nil", nil)
	}

	if err := validatorInstance().Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	for i, entry := range cfg.Plugins.Entries() {
		if !pluginPattern.MatchString(entry.Name) {
			return tferrors.NewValidationError(fieldForPlugin(i), fmt.Sprintf("invalid plugin name %q", entry.Name), nil)
		}
	}
	for _, name := range cfg.Plugins.Disabled() {
		if !pluginPattern.MatchString(name) {
			return tferrors.NewValidationError("plugins", fmt.Sprintf("invalid plugin name %q", name), nil)
		}
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return tferrors.NewValidationError(field, msg, err)
	}

	return tferrors.NewValidationError("config", err.Error(), err)
}

// yamlishFieldName turns Config.Log.Level into log.level and TableID into
// tableId.
func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, part := range parts {
		parts[i] = lowerFirst(part)
	}
	return strings.Join(parts, ".")
}

func lowerFirst(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "ID") && len(s) > 2:
		return strings.ToLower(s[:1]) + s[1:len(s)-2] + "Id"
	default:
		return strings.ToLower(s[:1]) + s[1:]
	}
}

func fieldForPlugin(index int) string {
	return fmt.Sprintf("plugins[%d]", index)
}
