package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeE164(t *testing.T) {
	assert.Equal(t, "+5511987654321", NormalizeE164("(11) 98765-4321"))
	assert.Equal(t, "+5511987654321", NormalizeE164("+55 11 98765-4321"))
	assert.Equal(t, "abc", NormalizeE164("  abc "))
	assert.Equal(t, "", NormalizeE164(""))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("11 98765-4321"))
	assert.False(t, IsValid("123"))
}
