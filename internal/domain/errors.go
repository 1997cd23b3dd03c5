package domain

import "errors"

// Business-rule failures. Handlers map these onto HTTP codes with errors.Is;
// everything not in this taxonomy surfaces as a 500.
var (
	ErrValidation   = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// Conflict family: the request is well-formed but the entity state
	// rejects it.
	ErrConflict            = errors.New("conflict")
	ErrOutOfStock          = errors.New("out of stock")
	ErrAlreadyApplied      = errors.New("already applied")
	ErrRoleUnavailable     = errors.New("role unavailable")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotRefundable       = errors.New("payment not eligible for refund")
	ErrPaymentNotSucceeded = errors.New("payment not successful")
	ErrProfileRequired     = errors.New("collaborator profile required")

	// ErrVersionConflict means the optimistic version check failed: the row
	// changed between load and save. Callers reload and retry.
	ErrVersionConflict = errors.New("entity version conflict")

	// ErrProviderUnavailable wraps payment-provider transport failures.
	// Retryable by the caller.
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// IsConflict reports whether err belongs to the conflict family.
func IsConflict(err error) bool {
	for _, target := range []error{
		ErrConflict, ErrOutOfStock, ErrAlreadyApplied, ErrRoleUnavailable,
		ErrInvalidTransition, ErrNotRefundable, ErrPaymentNotSucceeded,
		ErrVersionConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
