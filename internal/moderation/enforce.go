package moderation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// AccountSuspender suspends an account for a duration. It fails when the
// account is unknown or already suspended.
type AccountSuspender interface {
	SuspendAccount(ctx context.Context, account string, d time.Duration, reason, issuer string) error
}

// Disconnector force-closes a user's chat session.
type Disconnector interface {
	Disconnect(ctx context.Context, sessionID string) error
}

// Enforcer carries out the side effects of AccountSuspend decisions on
// behalf of the chat transport.
type Enforcer struct {
	suspender    AccountSuspender
	disconnector Disconnector
	issuer       string
}

// NewEnforcer creates an Enforcer. issuer is recorded as the author of every
// account suspension.
func NewEnforcer(suspender AccountSuspender, disconnector Disconnector, issuer string) *Enforcer {
	return &Enforcer{
		suspender:    suspender,
		disconnector: disconnector,
		issuer:       issuer,
	}
}

// Apply performs account suspension and disconnection when d carries an
// AccountSuspend punishment; any other decision is a no-op. The session is
// disconnected even if suspension fails. The returned error reports
// enforcement failures only: the message stays blocked either way.
func (e *Enforcer) Apply(ctx context.Context, user User, d Decision) error {
	if d.Reason != ReasonTermMatched || d.Punishment == nil || d.Punishment.Kind != AccountSuspend {
		return nil
	}

	var errs []error
	reason := fmt.Sprintf("prohibited term (severity %d)", d.Severity)
	if err := e.suspender.SuspendAccount(ctx, user.AccountName, d.Punishment.Duration, reason, e.issuer); err != nil {
		errs = append(errs, fmt.Errorf("suspend account %q: %w", user.AccountName, err))
	} else {
		log.Printf("[enforce] suspended account=%s user=%s for %s", user.AccountName, user.ID, d.Punishment.Duration)
	}

	if user.SessionID != "" {
		if err := e.disconnector.Disconnect(ctx, user.SessionID); err != nil {
			errs = append(errs, fmt.Errorf("disconnect session %s: %w", user.SessionID, err))
		}
	}

	return errors.Join(errs...)
}
