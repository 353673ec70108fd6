package domain

import (
	"errors"
	"fmt"

	"beneficios_backend/platform/apperr"

	"github.com/google/uuid"
)

// Workflow error taxonomy. Every constructor below wraps one of these in an
// *apperr.Error, so callers can match with errors.Is and the HTTP layer can map Kind.
var (
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrBlocked                = errors.New("blocked by open pendencies")
	ErrApprovalIncomplete     = errors.New("approval incomplete")
	ErrOutOfOrder             = errors.New("approver decided out of order")
	ErrAlreadyDecided         = errors.New("decision already recorded")
	ErrUnauthorized           = errors.New("actor not authorized")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrSchemaViolation        = errors.New("schema violation")
	ErrIneligible             = errors.New("eligibility requirements not met")
	ErrNotFound               = errors.New("not found")
)

// Machine-readable error codes exposed to API clients.
const (
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeBlocked                = "BLOCKED"
	CodeApprovalIncomplete     = "APPROVAL_INCOMPLETE"
	CodeOutOfOrder             = "OUT_OF_ORDER"
	CodeAlreadyDecided         = "ALREADY_DECIDED"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeSchemaViolation        = "SCHEMA_VIOLATION"
	CodeIneligible             = "INELIGIBLE"
	CodeNotFound               = "NOT_FOUND"
)

// FieldError describes one violated eligibility rule.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func InvalidTransition(from, to Status) error {
	return apperr.Wrap(apperr.KindConflict, fmt.Sprintf("transition from %s to %s is not allowed", from, to), ErrInvalidTransition).
		WithCode(CodeInvalidTransition).
		WithDetails(map[string]any{"from": from, "to": to, "allowed": AllowedTargets(from)})
}

// Blocked names the pendencies that prevent the transition.
func Blocked(pendencyIDs []uuid.UUID) error {
	return apperr.Wrap(apperr.KindPrecondition, fmt.Sprintf("%d open pendencies must be resolved first", len(pendencyIDs)), ErrBlocked).
		WithCode(CodeBlocked).
		WithDetails(map[string]any{"pendencias": pendencyIDs})
}

func ApprovalIncomplete(approvalIDs []uuid.UUID) error {
	return apperr.Wrap(apperr.KindPrecondition, "required approvals are not concluded", ErrApprovalIncomplete).
		WithCode(CodeApprovalIncomplete).
		WithDetails(map[string]any{"aprovacoes": approvalIDs})
}

func OutOfOrder(order, pendingOrder int) error {
	return apperr.Wrap(apperr.KindConflict, fmt.Sprintf("approver at order %d must wait for order %d", order, pendingOrder), ErrOutOfOrder).
		WithCode(CodeOutOfOrder)
}

func AlreadyDecided(message string) error {
	return apperr.Wrap(apperr.KindConflict, message, ErrAlreadyDecided).WithCode(CodeAlreadyDecided)
}

func Unauthorized(message string) error {
	return apperr.Wrap(apperr.KindForbidden, message, ErrUnauthorized).WithCode(CodeUnauthorized)
}

func ConcurrentModification(entity string, id uuid.UUID, expectedVersion int) error {
	return apperr.Wrap(apperr.KindConflict, fmt.Sprintf("%s %s changed since version %d", entity, id, expectedVersion), ErrConcurrentModification).
		WithCode(CodeConcurrentModification)
}

// SchemaViolation reports an unknown persisted enumeration value.
func SchemaViolation(entity, field, value string) error {
	return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("unknown %s.%s value %q", entity, field, value), ErrSchemaViolation).
		WithCode(CodeSchemaViolation)
}

func Ineligible(violations []FieldError) error {
	return apperr.Wrap(apperr.KindValidation, "request does not meet eligibility requirements", ErrIneligible).
		WithCode(CodeIneligible).
		WithDetails(violations)
}

func NotFound(entity string, id uuid.UUID) error {
	return apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("%s %s not found", entity, id), ErrNotFound).
		WithCode(CodeNotFound)
}

// NotFoundByKey is NotFound for entities addressed by a natural key.
func NotFoundByKey(entity, key string) error {
	return apperr.Wrap(apperr.KindNotFound, fmt.Sprintf("%s %q not found", entity, key), ErrNotFound).
		WithCode(CodeNotFound)
}

// TerminalRequest reports an operation refused because the request can no longer change.
func TerminalRequest(id uuid.UUID, status Status) error {
	return apperr.Wrap(apperr.KindConflict, fmt.Sprintf("solicitacao %s is %s and can no longer change", id, status), ErrInvalidTransition).
		WithCode(CodeInvalidTransition)
}
