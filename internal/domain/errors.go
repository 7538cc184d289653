package domain

import "errors"

var (
	ErrValidation             = errors.New("validation failed")
	ErrSameParty              = errors.New("supplier and consumer are the same")
	ErrInvalidPrice           = errors.New("order price must be positive with at most 2 decimal places")
	ErrPartyInactiveOrMissing = errors.New("supplier or consumer not found or inactive")
	ErrProfitFloorBreached    = errors.New("consumer profit would drop to or below the floor")
	ErrDuplicateBusinessKey   = errors.New("order already exists for title, supplier and consumer")
	ErrVersionConflict        = errors.New("concurrent modification detected")
	ErrInterrupted            = errors.New("order processing interrupted")

	ErrClientNotFound      = errors.New("client not found")
	ErrClientAlreadyActive = errors.New("client is already active")
	ErrEmailTaken          = errors.New("email already in use")
	ErrPhoneTaken          = errors.New("phone already in use")
	ErrOrderNotFound       = errors.New("order not found")
	ErrInvalidID           = errors.New("invalid id")
	ErrKeywordTooShort     = errors.New("keyword must be at least 3 characters")
)

// IsConflict reports whether err is one of the conflict failures a caller may
// resolve by re-reading state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateBusinessKey) || errors.Is(err, ErrVersionConflict)
}
