// Package moderation decides whether outgoing chat messages may be delivered.
// It normalizes message text, scans it against a reloadable catalog of
// prohibited terms, and maps each hit to a graduated punishment (mute or
// account suspension). Mutes are tracked in a SuspensionStore; everything
// else is returned to the caller as decision data.
package moderation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User identifies the sender of a message.
type User struct {
	ID          string
	DisplayName string
	AccountName string
	SessionID   string
	Admin       bool // administrative privilege, never moderated
}

// Message is a single outgoing chat message.
type Message struct {
	Text    string
	Channel string // channel/language classifier, used only for exemption
}

// Reason explains a decision.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonAlreadySuspended
	ReasonTermMatched
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonAlreadySuspended:
		return "already_suspended"
	case ReasonTermMatched:
		return "term_matched"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Decision is the outcome of evaluating one message. The original text is
// never modified; the caller decides whether to deliver, drop or replace it.
type Decision struct {
	Allowed bool
	Reason  Reason

	// Remaining is set for ReasonAlreadySuspended.
	Remaining time.Duration

	// Term and Severity are set for ReasonTermMatched.
	Term     string
	Severity int

	// Punishment is set for ReasonTermMatched.
	Punishment *Punishment

	// Record is set for ReasonTermMatched when violation logging is enabled.
	Record *ViolationRecord
}

// ViolationRecord is one line of the per-day violation log.
type ViolationRecord struct {
	IncidentID  string
	Timestamp   time.Time
	UserID      string
	DisplayName string
	AccountName string
	Text        string // original, un-normalized text
	Term        string
	Severity    int
}

// Config holds the engine switches.
type Config struct {
	Enabled        bool
	LogEnabled     bool
	ExemptChannels []string
}

// DefaultConfig returns an enabled engine with logging on and the addon and
// system channels exempt.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		LogEnabled:     true,
		ExemptChannels: []string{"addon", "system"},
	}
}

// Engine evaluates messages against a Catalog, a SuspensionStore and a
// Policy. It is safe for concurrent use.
type Engine struct {
	catalog    *Catalog
	store      SuspensionStore
	policy     *Policy
	enabled    bool
	logEnabled bool
	exempt     map[string]struct{}
}

// NewEngine creates an engine. A nil store or policy selects an in-memory
// store or DefaultPolicy respectively.
func NewEngine(catalog *Catalog, store SuspensionStore, policy *Policy, cfg Config) *Engine {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if store == nil {
		store = NewMemSuspensionStore()
	}
	if policy == nil {
		policy = DefaultPolicy()
	}
	exempt := make(map[string]struct{}, len(cfg.ExemptChannels))
	for _, ch := range cfg.ExemptChannels {
		exempt[ch] = struct{}{}
	}
	return &Engine{
		catalog:    catalog,
		store:      store,
		policy:     policy,
		enabled:    cfg.Enabled,
		logEnabled: cfg.LogEnabled,
		exempt:     exempt,
	}
}

// Catalog returns the engine's term catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Reload replaces the engine's term set.
func (e *Engine) Reload(entries []ProhibitedTerm) ReloadResult {
	return e.catalog.Reload(entries)
}

// Exempt reports whether the message bypasses moderation entirely.
func (e *Engine) Exempt(user User, msg Message) bool {
	if !e.enabled || user.Admin {
		return true
	}
	_, ok := e.exempt[msg.Channel]
	return ok
}

// Evaluate decides whether msg from user may be delivered at time now.
//
// Exempt traffic is allowed before any state is consulted. A suspended user
// is rejected without scanning the text. Otherwise the normalized text is
// matched against the catalog; on a hit the tier's punishment is computed and
// Mute punishments are recorded in the suspension store. Account suspension
// and disconnection are left to the caller.
func (e *Engine) Evaluate(user User, msg Message, now time.Time) Decision {
	if e.Exempt(user, msg) {
		return Decision{Allowed: true}
	}

	if remaining, ok := e.store.IsSuspended(user.ID, now); ok && remaining > 0 {
		return Decision{
			Allowed:   false,
			Reason:    ReasonAlreadySuspended,
			Remaining: remaining,
		}
	}

	term, ok := e.catalog.Lookup(Normalize(msg.Text))
	if !ok {
		return Decision{Allowed: true}
	}

	p := e.policy.Describe(term.Severity)
	if p.Kind == Mute {
		e.store.Suspend(user.ID, now, p.Duration)
	}

	d := Decision{
		Allowed:    false,
		Reason:     ReasonTermMatched,
		Term:       term.Text,
		Severity:   term.Severity,
		Punishment: &p,
	}
	if e.logEnabled {
		d.Record = &ViolationRecord{
			IncidentID:  uuid.New().String(),
			Timestamp:   now,
			UserID:      user.ID,
			DisplayName: user.DisplayName,
			AccountName: user.AccountName,
			Text:        msg.Text,
			Term:        term.Text,
			Severity:    term.Severity,
		}
	}
	return d
}
