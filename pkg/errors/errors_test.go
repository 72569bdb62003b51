package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := fmt.Errorf("unexpected token")
	err := NewParseError("tableflow.yaml", 12, underlying)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Equal(t, "tableflow.yaml", parseErr.Path)
	require.Equal(t, 12, parseErr.Line)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "tableflow.yaml:12")
}

func TestValidationErrorIncludesField(t *testing.T) {
	t.Parallel()

	err := NewValidationError("tableId", "is required", nil)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "tableId", validationErr.Field)
	require.Equal(t, "validation error: tableId: is required", err.Error())
}

func TestHostErrorMatchesSentinel(t *testing.T) {
	t.Parallel()

	err := NewHostError("init", fmt.Errorf("%w: #orders", ErrTableNotFound))

	var hostErr *HostError
	require.ErrorAs(t, err, &hostErr)
	require.Equal(t, "init", hostErr.Op)
	require.ErrorIs(t, err, ErrTableNotFound)
	require.NotErrorIs(t, err, ErrNotATable)
	require.Contains(t, err.Error(), "tableflow init")
}

func TestPluginErrorIncludesPluginName(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("not supported")
	err := NewPluginError("edit", underlying)

	var pluginErr *PluginError
	require.ErrorAs(t, err, &pluginErr)
	require.Equal(t, "edit", pluginErr.Plugin)
	require.True(t, stdErrors.Is(err, underlying))
	require.Equal(t, "plugin error [edit]: not supported", err.Error())
}

func TestHookErrorFormatsLabel(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("boom")
	err := NewHookError("persist", "audit", underlying)
	require.Equal(t, "hook error [persist/audit]: boom", err.Error())
	require.ErrorIs(t, err, underlying)

	err = NewHookError("persist", "", underlying)
	require.Equal(t, "hook error [persist]: boom", err.Error())
}

func TestNilReceiversAreSafe(t *testing.T) {
	t.Parallel()

	var hostErr *HostError
	var pluginErr *PluginError
	var hookErr *HookError
	require.Empty(t, hostErr.Error())
	require.Nil(t, pluginErr.Unwrap())
	require.Nil(t, hookErr.Unwrap())
}
