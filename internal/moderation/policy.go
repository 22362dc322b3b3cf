package moderation

import (
	"fmt"
	"strings"
	"time"
)

// PunishmentKind is the type of enforcement attached to a severity tier.
type PunishmentKind int

const (
	// BlockOnly drops the message without any timed punishment.
	BlockOnly PunishmentKind = iota
	// Mute suspends the user's chat for the punishment duration.
	Mute
	// AccountSuspend asks the caller to suspend the account and disconnect
	// the session.
	AccountSuspend
)

var kindNames = map[PunishmentKind]string{
	BlockOnly:      "block_only",
	Mute:           "mute",
	AccountSuspend: "account_suspend",
}

func (k PunishmentKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParsePunishmentKind maps a config name ("mute", "account_suspend",
// "block_only") to its kind.
func ParsePunishmentKind(name string) (PunishmentKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return BlockOnly, fmt.Errorf("moderation: unknown punishment kind %q", name)
}

// DefaultRejectionMessage is shown when a message is blocked by a severity
// that has no configured tier.
const DefaultRejectionMessage = "Your message contained inappropriate language and was not sent."

// Punishment describes what should happen to a user whose message matched a
// prohibited term.
type Punishment struct {
	Kind        PunishmentKind
	Duration    time.Duration
	UserMessage string
}

// Disconnect reports whether the caller must force-disconnect the session.
func (p Punishment) Disconnect() bool {
	return p.Kind == AccountSuspend
}

// Policy maps severity tiers to punishments. Tier i applies to severity i.
// It holds no mutable state and is safe for concurrent use.
type Policy struct {
	tiers    []Punishment
	fallback Punishment
}

// NewPolicy creates a policy from the ordered tiers. rejection is the user
// message for severities outside the configured range; "" selects
// DefaultRejectionMessage.
func NewPolicy(tiers []Punishment, rejection string) *Policy {
	if rejection == "" {
		rejection = DefaultRejectionMessage
	}
	t := make([]Punishment, len(tiers))
	copy(t, tiers)
	return &Policy{
		tiers:    t,
		fallback: Punishment{Kind: BlockOnly, UserMessage: rejection},
	}
}

// DefaultTiers is the stock escalation: warning and medium tiers mute the
// user, the severe tier suspends the account.
func DefaultTiers() []Punishment {
	return []Punishment{
		{Kind: Mute, Duration: 60 * time.Second, UserMessage: "Your message contained inappropriate language. You are muted for 1 minute."},
		{Kind: Mute, Duration: 180 * time.Second, UserMessage: "Your message contained offensive language. You are muted for 3 minutes."},
		{Kind: AccountSuspend, Duration: 300 * time.Second, UserMessage: "Your message contained severely offensive language. Your account is suspended for 5 minutes."},
	}
}

// DefaultPolicy returns a Policy built from DefaultTiers.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultTiers(), "")
}

// Describe returns the punishment for severity. Negative or unconfigured
// severities get the block-only fallback.
func (p *Policy) Describe(severity int) Punishment {
	if severity < 0 || severity >= len(p.tiers) {
		return p.fallback
	}
	return p.tiers[severity]
}

// Tiers returns the number of configured severity tiers.
func (p *Policy) Tiers() int {
	return len(p.tiers)
}
