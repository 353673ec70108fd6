package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"nome" validate:"required"`
	Count int    `json:"quantidade" validate:"min=1"`
	Mode  string `json:"modo" validate:"omitempty,oneof=a b"`
}

func TestViolationsReportsEveryField(t *testing.T) {
	v := New()

	violations, err := v.Violations(sample{Mode: "c"})
	require.NoError(t, err)
	require.Len(t, violations, 3)

	fields := map[string]string{}
	for _, violation := range violations {
		fields[violation.Field] = violation.Rule
	}
	assert.Equal(t, "required", fields["nome"])
	assert.Equal(t, "min", fields["quantidade"])
	assert.Equal(t, "oneof", fields["modo"])
}

func TestViolationsValidStruct(t *testing.T) {
	violations, err := New().Violations(sample{Name: "x", Count: 2})
	require.NoError(t, err)
	assert.Nil(t, violations)
}

func TestViolationsNonStruct(t *testing.T) {
	_, err := New().Violations(42)
	assert.Error(t, err)
}
