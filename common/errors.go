package common

import "errors"

// Error taxonomy shared by the core packages. Callers match with errors.Is;
// the HTTP layer maps each kind to a stable status code.
var (
	ErrValidation                = errors.New("validation failed")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrStorageVerificationFailed = errors.New("storage verification failed")
	ErrAnchorFailed              = errors.New("anchor failed")
	ErrTransactionReverted       = errors.New("transaction reverted")
	ErrConfirmationTimeout       = errors.New("confirmation timeout")
	ErrSubmissionRejected        = errors.New("transaction submission rejected")
	ErrRewardFailed              = errors.New("reward failed")
	ErrNotFound                  = errors.New("not found")
	ErrAlreadyExists             = errors.New("already exists")
)

// ErrorCode returns the stable external code for an error chain.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrStorageVerificationFailed):
		return "storage_verification_failed"
	case errors.Is(err, ErrAnchorFailed):
		return "anchor_failed"
	case errors.Is(err, ErrRewardFailed):
		return "reward_failed"
	case errors.Is(err, ErrTransactionReverted):
		return "transaction_reverted"
	case errors.Is(err, ErrConfirmationTimeout):
		return "confirmation_timeout"
	case errors.Is(err, ErrSubmissionRejected):
		return "submission_rejected"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	default:
		return "internal_error"
	}
}
