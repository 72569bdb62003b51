package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetValidatorIsShared(t *testing.T) {
	t.Parallel()

	require.Same(t, GetValidator(), GetValidator())
}

func TestTableIDValidation(t *testing.T) {
	t.Parallel()

	v := GetValidator()
	tests := []struct {
		id   string
		want bool
	}{
		{"orders", true},
		{"orders-2024", true},
		{"app:orders.main", true},
		{"Orders_Table", true},
		{"", false},
		{"1orders", false},
		{"has space", false},
		{"#orders", false},
	}

	for _, tt := range tests {
		err := v.Var(tt.id, "table_id")
		if tt.want {
			require.NoError(t, err, tt.id)
		} else {
			require.Error(t, err, tt.id)
		}
	}
}

func TestCSSClassValidation(t *testing.T) {
	t.Parallel()

	v := GetValidator()
	require.NoError(t, v.Var("cell-wrap", "css_class"))
	require.NoError(t, v.Var("_x", "css_class"))
	require.Error(t, v.Var("two words", "css_class"))
	require.Error(t, v.Var("9lives", "css_class"))
}

func TestValidateConfigNil(t *testing.T) {
	t.Parallel()

	require.Error(t, ValidateConfig(nil))
}
