package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition marks an event that does not apply to the
	// subscription's current status. Callers must not retry: redelivery
	// cannot fix a logic or ordering bug.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrConcurrencyConflict marks exhausted lock contention on the target
	// subscription row. The whole operation is safe to retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict on subscription")

	// ErrAuthentication marks an inbound webhook whose signature could not
	// be verified. Nothing is processed and no dedup record is written.
	ErrAuthentication = errors.New("webhook authentication failed")

	// ErrAlreadyProcessed signals a deduplicated gateway event. It is a
	// deliberate early-return success, not a failure.
	ErrAlreadyProcessed = errors.New("event already processed")
)

func illegalTransition(status string, ev Event) error {
	return fmt.Errorf("%w: %s not applicable in status %s", ErrIllegalTransition, ev.Name(), status)
}
