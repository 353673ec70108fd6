package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusUnprocessableEntity},
		{KindBadRequest, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindForbidden, http.StatusForbidden},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindPrecondition, http.StatusPreconditionFailed},
		{KindInternal, http.StatusInternalServerError},
		{KindUnknown, http.StatusBadRequest},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, New(tt.kind, "x").HTTPStatus(), "kind %d", tt.kind)
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	sentinel := errors.New("blocked")
	domainErr := Wrap(KindPrecondition, "open pendencies", sentinel).WithCode("BLOCKED")
	wrapped := fmt.Errorf("transition: %w", domainErr)

	assert.Equal(t, KindPrecondition, GetKind(wrapped))
	assert.True(t, Is(wrapped, KindPrecondition))
	assert.ErrorIs(t, wrapped, sentinel)

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "BLOCKED", got.Code)
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := Conflict("stale version").WithOp("SaveRequest")
	assert.Equal(t, "SaveRequest: stale version", err.Error())
	assert.Equal(t, KindUnknown, GetKind(errors.New("plain")))
}
