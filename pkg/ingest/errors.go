package ingest

import "errors"

// Parse errors. All of them mean "drop the event, do not persist": the caller
// logs and answers success so the upstream relay can retry safely.
var (
	// ErrIrrelevant marks a notification that does not reference the target
	// account (push traffic for somebody else's account or app chatter).
	ErrIrrelevant = errors.New("notification does not reference target account")
	// ErrWithdrawal marks a debit notification; only credits are ingested.
	ErrWithdrawal = errors.New("withdrawal notification")
	// ErrNoAmount is returned when no amount precedes the currency marker.
	ErrNoAmount = errors.New("no amount detected")
	// ErrNoDepositor is returned when no depositor name precedes the
	// direction marker.
	ErrNoDepositor = errors.New("no depositor name detected")
)

// ValidationError reports a missing required application field. Unlike parse
// errors it is surfaced to the caller as a bad request.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}
