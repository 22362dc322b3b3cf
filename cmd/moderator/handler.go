package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/whisper/chatfilter/internal/metrics"
	"github.com/whisper/chatfilter/internal/moderation"
	"github.com/whisper/chatfilter/internal/termstore"
)

// enforceTimeout bounds account suspension and disconnect calls.
const enforceTimeout = 3 * time.Second

type violationWriter interface {
	Write(rec moderation.ViolationRecord) error
}

// checker serves moderation.check and moderation.reload requests.
type checker struct {
	engine      *moderation.Engine
	enforcer    *moderation.Enforcer
	source      termstore.Source
	violations  violationWriter // nil when violation logging is off
	suspensions interface{ Len() int }
	publish     func(sessionID string, data []byte) error
	now         func() time.Time
}

type reloadReply struct {
	moderation.ReloadResult
	Error string `json:"error,omitempty"`
}

// handleCheck evaluates one message request and returns the encoded result.
func (c *checker) handleCheck(data []byte) []byte {
	start := time.Now()
	defer func() { metrics.EvaluateLatency.Observe(time.Since(start).Seconds()) }()

	var req moderation.ModerationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("[moderator] failed to unmarshal request: %v", err)
		return nil
	}
	if err := req.Validate(); err != nil {
		log.Printf("[moderator] invalid request session=%s: %v", req.SessionID, err)
		return encode(moderation.ModerationResult{
			SessionID: req.SessionID,
			ChatID:    req.ChatID,
			UserID:    req.UserID,
			Blocked:   true,
			Reason:    "invalid_request",
		})
	}

	user := req.User()
	d := c.engine.Evaluate(user, req.Message(), c.now())
	metrics.DecisionsTotal.WithLabelValues(d.Reason.String()).Inc()
	if c.suspensions != nil {
		metrics.SuspendedUsers.Set(float64(c.suspensions.Len()))
	}

	res := moderation.NewResult(req, d)
	if d.Allowed {
		return encode(res)
	}

	switch d.Reason {
	case moderation.ReasonAlreadySuspended:
		log.Printf("[moderator] SUSPENDED user=%s session=%s remaining=%s",
			req.UserID, req.SessionID, d.Remaining)
	case moderation.ReasonTermMatched:
		metrics.PunishmentsTotal.WithLabelValues(d.Punishment.Kind.String()).Inc()
		log.Printf("[moderator] FLAGGED user=%s session=%s chat=%s severity=%d term=%q punishment=%s",
			req.UserID, req.SessionID, req.ChatID, d.Severity, d.Term, d.Punishment.Kind)

		if d.Record != nil && c.violations != nil {
			if err := c.violations.Write(*d.Record); err != nil {
				log.Printf("[moderator] violation log: %v", err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), enforceTimeout)
		if err := c.enforcer.Apply(ctx, user, d); err != nil {
			metrics.EnforcementFailures.Inc()
			log.Printf("[moderator] enforcement failed user=%s account=%s: %v", req.UserID, req.Account, err)
			res.EnforcementError = err.Error()
		}
		cancel()
	}

	out := encode(res)
	if out != nil && req.SessionID != "" {
		if err := c.publish(req.SessionID, out); err != nil {
			log.Printf("[moderator] failed to publish result: %v", err)
		}
	}
	return out
}

// handleReload reloads the catalog from the term source.
func (c *checker) handleReload(_ []byte) []byte {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := c.reload(ctx)
	reply := reloadReply{ReloadResult: res}
	if err != nil {
		reply.Error = err.Error()
	}
	return encode(reply)
}

// reload loads terms from the source and swaps them into the engine. Entries
// the source could not parse are counted as skipped and the reload proceeds
// with the rest, even if nothing is left. Only a failing source leaves the
// current catalog in place.
func (c *checker) reload(ctx context.Context) (moderation.ReloadResult, error) {
	terms, err := c.source.Load(ctx)
	if err != nil && !errors.Is(err, termstore.ErrInvalidEntry) {
		log.Printf("[moderator] reload failed, keeping %d terms: %v", c.engine.Catalog().Len(), err)
		return moderation.ReloadResult{}, err
	}

	res := c.engine.Reload(terms)
	if err != nil {
		res.Skipped += countErrors(err)
		log.Printf("[moderator] reload skipped malformed entries: %v", err)
	}

	metrics.CatalogTerms.Set(float64(res.Loaded))
	metrics.ReloadSkippedTotal.Add(float64(res.Skipped))
	log.Printf("[moderator] catalog reloaded: loaded=%d skipped=%d", res.Loaded, res.Skipped)
	return res, nil
}

// countErrors returns the number of errors joined in err.
func countErrors(err error) int {
	if err == nil {
		return 0
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}

func encode(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[moderator] failed to marshal result: %v", err)
		return nil
	}
	return data
}
