package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestFormatProtocol(t *testing.T) {
	at := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "SOL-2026-000042", formatProtocol(at, 42))
	assert.Equal(t, "SOL-2026-1234567", formatProtocol(at, 1234567))
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "solicitacao_original_unique"}
	wrapped := fmt.Errorf("insert: %w", dup)

	assert.True(t, isUniqueViolation(wrapped, "solicitacao_original_unique"))
	assert.True(t, isUniqueViolation(wrapped, ""))
	assert.False(t, isUniqueViolation(wrapped, "pagamento_solicitacao_id_key"))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
	assert.False(t, isUniqueViolation(nil, ""))
}

func TestNullableStrings(t *testing.T) {
	assert.Nil(t, nullableString(""))
	assert.Equal(t, "x", derefString(nullableString("x")))
	assert.Equal(t, "", derefString(nil))
	assert.Equal(t, []string{}, nonNilStrings(nil))
}
