package reconcile

import "fmt"

// ErrorCode classifies per-item reconciliation failures.
type ErrorCode string

const (
	// ErrStorageWrite is a transient failure persisting one mutation.
	ErrStorageWrite ErrorCode = "STORAGE_WRITE"
	// ErrStorageRead is a failure loading periods or transactions.
	ErrStorageRead ErrorCode = "STORAGE_READ"
	// ErrMissingPeriod is a referenced obligation absent from the loaded
	// set.
	ErrMissingPeriod ErrorCode = "MISSING_PERIOD"
)

// ReconcileError is a structured per-item error collected into the batch
// summary. Retryable errors are safe to re-run: mutations are append-only
// or idempotently recomputed, so a partially applied batch can always be
// resumed.
type ReconcileError struct {
	Code      ErrorCode
	Message   string
	ItemID    string // transaction, fragment or period identity
	Retryable bool
	Cause     error
}

func (e *ReconcileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%s): %v", e.Code, e.Message, e.ItemID, e.Cause)
	}
	return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.ItemID)
}

func (e *ReconcileError) Unwrap() error {
	return e.Cause
}
