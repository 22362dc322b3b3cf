package moderation

import (
	"errors"
	"fmt"
	"math"
	"time"
	"unicode/utf8"
)

const (
	MaxMessageBytes = 4096 // 4KB max frame size
	MaxTextChars    = 2000 // max character count
)

// ModerationRequest is published to moderation.check by the chat transport
// for every outgoing message.
type ModerationRequest struct {
	SessionID   string `json:"session_id"`
	ChatID      string `json:"chat_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Account     string `json:"account"`
	Admin       bool   `json:"admin"`
	Channel     string `json:"channel"`
	Text        string `json:"text"`
	Ts          int64  `json:"ts"`
}

// Validate checks that a request carries a sender and a well-formed text.
func (r ModerationRequest) Validate() error {
	if r.UserID == "" {
		return errors.New("moderation: request has no user_id")
	}
	if len(r.Text) > MaxMessageBytes {
		return fmt.Errorf("moderation: message exceeds %d byte limit", MaxMessageBytes)
	}
	if !utf8.ValidString(r.Text) {
		return errors.New("moderation: message contains invalid UTF-8")
	}
	if utf8.RuneCountInString(r.Text) > MaxTextChars {
		return fmt.Errorf("moderation: message exceeds %d character limit", MaxTextChars)
	}
	return nil
}

// User returns the sender described by the request.
func (r ModerationRequest) User() User {
	return User{
		ID:          r.UserID,
		DisplayName: r.DisplayName,
		AccountName: r.Account,
		SessionID:   r.SessionID,
		Admin:       r.Admin,
	}
}

// Message returns the message described by the request.
func (r ModerationRequest) Message() Message {
	return Message{Text: r.Text, Channel: r.Channel}
}

// PunishmentInfo is the wire form of a Punishment.
type PunishmentInfo struct {
	Kind            string `json:"kind"`
	DurationSeconds int    `json:"duration_seconds"`
	Message         string `json:"message"`
}

// ModerationResult is published back to the chat transport with the outcome.
type ModerationResult struct {
	SessionID        string          `json:"session_id"`
	ChatID           string          `json:"chat_id"`
	UserID           string          `json:"user_id"`
	Allowed          bool            `json:"allowed"`
	Blocked          bool            `json:"blocked"`
	Reason           string          `json:"reason"`
	Term             string          `json:"term,omitempty"`
	Severity         int             `json:"severity"`
	RemainingSeconds int             `json:"remaining_seconds,omitempty"`
	Punishment       *PunishmentInfo `json:"punishment,omitempty"`
	Disconnect       bool            `json:"disconnect,omitempty"`
	IncidentID       string          `json:"incident_id,omitempty"`
	EnforcementError string          `json:"enforcement_error,omitempty"`
}

// NewResult builds the wire result for req from decision d. Remaining time is
// rounded up so a suspended user never sees "0 seconds".
func NewResult(req ModerationRequest, d Decision) ModerationResult {
	res := ModerationResult{
		SessionID: req.SessionID,
		ChatID:    req.ChatID,
		UserID:    req.UserID,
		Allowed:   d.Allowed,
		Blocked:   !d.Allowed,
		Reason:    d.Reason.String(),
	}

	switch d.Reason {
	case ReasonAlreadySuspended:
		res.RemainingSeconds = int(math.Ceil(d.Remaining.Seconds()))
	case ReasonTermMatched:
		res.Term = d.Term
		res.Severity = d.Severity
		if d.Punishment != nil {
			res.Punishment = &PunishmentInfo{
				Kind:            d.Punishment.Kind.String(),
				DurationSeconds: int(d.Punishment.Duration / time.Second),
				Message:         d.Punishment.UserMessage,
			}
			res.Disconnect = d.Punishment.Disconnect()
		}
		if d.Record != nil {
			res.IncidentID = d.Record.IncidentID
		}
	}
	return res
}
