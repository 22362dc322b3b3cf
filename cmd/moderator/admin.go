package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/whisper/chatfilter/internal/moderation"
)

// Admin operations accepted on moderation.admin.
const (
	opUpsertTerm  = "upsert_term"
	opDisableTerm = "disable_term"
	opBanStatus   = "ban_status"
	opUnban       = "unban"
)

var errTermsReadOnly = errors.New("term catalog is not backed by a database")

type termEditor interface {
	Upsert(ctx context.Context, term string, severity int) error
	Disable(ctx context.Context, term string) error
}

type banAdmin interface {
	IsBanned(ctx context.Context, account string) (bool, int, string, error)
	Unban(ctx context.Context, account string) error
}

// AdminRequest is an operator command.
type AdminRequest struct {
	Op       string `json:"op"`
	Term     string `json:"term,omitempty"`
	Severity int    `json:"severity,omitempty"`
	Account  string `json:"account,omitempty"`
}

// AdminReply answers an AdminRequest.
type AdminReply struct {
	OK               bool                     `json:"ok"`
	Error            string                   `json:"error,omitempty"`
	Banned           bool                     `json:"banned,omitempty"`
	RemainingSeconds int                      `json:"remaining_seconds,omitempty"`
	Reason           string                   `json:"reason,omitempty"`
	Reload           *moderation.ReloadResult `json:"reload,omitempty"`
}

// admin serves operator commands: editing stored terms (followed by a
// catalog reload) and inspecting or lifting account suspensions.
type admin struct {
	terms  termEditor // nil when terms come from configuration
	bans   banAdmin
	reload func(ctx context.Context) (moderation.ReloadResult, error)
}

func (a *admin) handle(data []byte) []byte {
	var req AdminRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return encode(AdminReply{Error: "invalid request: " + err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	reply, err := a.do(ctx, req)
	if err != nil {
		log.Printf("[admin] op=%s failed: %v", req.Op, err)
		reply.Error = err.Error()
		return encode(reply)
	}
	reply.OK = true
	log.Printf("[admin] op=%s term=%q account=%q done", req.Op, req.Term, req.Account)
	return encode(reply)
}

func (a *admin) do(ctx context.Context, req AdminRequest) (AdminReply, error) {
	var reply AdminReply
	switch req.Op {
	case opUpsertTerm, opDisableTerm:
		if a.terms == nil {
			return reply, errTermsReadOnly
		}
		var err error
		if req.Op == opUpsertTerm {
			err = a.terms.Upsert(ctx, req.Term, req.Severity)
		} else {
			err = a.terms.Disable(ctx, req.Term)
		}
		if err != nil {
			return reply, err
		}
		res, err := a.reload(ctx)
		if err != nil {
			return reply, err
		}
		reply.Reload = &res

	case opBanStatus:
		banned, remaining, reason, err := a.bans.IsBanned(ctx, req.Account)
		if err != nil {
			return reply, err
		}
		reply.Banned, reply.RemainingSeconds, reply.Reason = banned, remaining, reason

	case opUnban:
		if err := a.bans.Unban(ctx, req.Account); err != nil {
			return reply, err
		}

	default:
		return reply, errors.New("unknown op " + req.Op)
	}
	return reply, nil
}
