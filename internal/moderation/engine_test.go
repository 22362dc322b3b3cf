package moderation

import (
	"strings"
	"testing"
	"time"
)

func newTestEngine(cfg Config, terms ...ProhibitedTerm) *Engine {
	c := NewCatalog()
	c.Reload(terms)
	return NewEngine(c, NewMemSuspensionStore(), DefaultPolicy(), cfg)
}

var alice = User{ID: "u-alice", DisplayName: "Alice", AccountName: "alice", SessionID: "s-1"}

func TestEvaluate_CleanMessageAllowed(t *testing.T) {
	e := newTestEngine(DefaultConfig(), ProhibitedTerm{Text: "badword", Severity: 1})

	messages := []string{
		"hello, how are you?",
		"bad things are bad",
		"",
		"b a d",
	}
	for _, msg := range messages {
		d := e.Evaluate(alice, Message{Text: msg}, t0)
		if !d.Allowed || d.Reason != ReasonNone {
			t.Errorf("Evaluate(%q) = %+v, want allowed", msg, d)
		}
	}
}

func TestEvaluate_ObfuscatedTermBlocked(t *testing.T) {
	e := newTestEngine(DefaultConfig(), ProhibitedTerm{Text: "badword", Severity: 1})

	d := e.Evaluate(alice, Message{Text: "this is a B-A-D-W-O-R-D test"}, t0)
	if d.Allowed {
		t.Fatal("expected blocked")
	}
	if d.Reason != ReasonTermMatched {
		t.Errorf("Reason = %v, want %v", d.Reason, ReasonTermMatched)
	}
	if d.Severity != 1 || d.Term != "badword" {
		t.Errorf("Severity/Term = %d/%q, want 1/badword", d.Severity, d.Term)
	}
	if d.Punishment == nil || d.Punishment.Kind != Mute || d.Punishment.Duration != 180*time.Second {
		t.Errorf("Punishment = %+v, want mute 180s", d.Punishment)
	}
}

func TestEvaluate_MuteThenExpire(t *testing.T) {
	e := newTestEngine(DefaultConfig(), ProhibitedTerm{Text: "badword", Severity: 0})

	d := e.Evaluate(alice, Message{Text: "badword"}, t0)
	if d.Reason != ReasonTermMatched {
		t.Fatalf("Reason = %v, want term_matched", d.Reason)
	}

	// Still muted one second before the end; text is not inspected.
	d = e.Evaluate(alice, Message{Text: "perfectly fine"}, t0.Add(59*time.Second))
	if d.Allowed || d.Reason != ReasonAlreadySuspended {
		t.Fatalf("at T+59s got %+v, want already_suspended", d)
	}
	if d.Remaining != time.Second {
		t.Errorf("Remaining = %v, want 1s", d.Remaining)
	}

	d = e.Evaluate(alice, Message{Text: "perfectly fine"}, t0.Add(60*time.Second))
	if !d.Allowed {
		t.Errorf("at T+60s got %+v, want allowed", d)
	}

	d = e.Evaluate(alice, Message{Text: "badword again"}, t0.Add(61*time.Second))
	if d.Reason != ReasonTermMatched {
		t.Errorf("at T+61s got %v, want term_matched", d.Reason)
	}
}

func TestEvaluate_AccountSuspendLeavesStoreUntouched(t *testing.T) {
	store := NewMemSuspensionStore()
	c := NewCatalog()
	c.Reload([]ProhibitedTerm{{Text: "severe", Severity: 2}})
	e := NewEngine(c, store, DefaultPolicy(), DefaultConfig())

	d := e.Evaluate(alice, Message{Text: "so severe"}, t0)
	if d.Punishment == nil || d.Punishment.Kind != AccountSuspend {
		t.Fatalf("Punishment = %+v, want account_suspend", d.Punishment)
	}
	if !d.Punishment.Disconnect() {
		t.Error("account suspension should request disconnect")
	}
	if store.Len() != 0 {
		t.Errorf("store has %d records, want 0", store.Len())
	}
}

func TestEvaluate_UnknownSeverityBlockOnly(t *testing.T) {
	store := NewMemSuspensionStore()
	c := NewCatalog()
	c.Reload([]ProhibitedTerm{{Text: "weird", Severity: 9}})
	e := NewEngine(c, store, DefaultPolicy(), DefaultConfig())

	d := e.Evaluate(alice, Message{Text: "weird"}, t0)
	if d.Allowed || d.Punishment == nil || d.Punishment.Kind != BlockOnly {
		t.Fatalf("got %+v, want block-only", d)
	}
	if d.Punishment.UserMessage != DefaultRejectionMessage {
		t.Errorf("UserMessage = %q, want default rejection", d.Punishment.UserMessage)
	}
	if store.Len() != 0 {
		t.Error("block-only punishment suspended the user")
	}
}

func TestEvaluate_AdminExempt(t *testing.T) {
	store := NewMemSuspensionStore()
	c := NewCatalog()
	c.Reload([]ProhibitedTerm{{Text: "badword", Severity: 0}})
	e := NewEngine(c, store, DefaultPolicy(), DefaultConfig())

	admin := alice
	admin.Admin = true
	store.Suspend(admin.ID, t0, time.Hour)

	d := e.Evaluate(admin, Message{Text: "badword"}, t0)
	if !d.Allowed || d.Reason != ReasonNone {
		t.Errorf("admin got %+v, want allowed", d)
	}
	if remaining, _ := store.IsSuspended(admin.ID, t0); remaining != time.Hour {
		t.Errorf("admin evaluation changed suspension state: %v", remaining)
	}
}

func TestEvaluate_ExemptChannel(t *testing.T) {
	e := newTestEngine(DefaultConfig(), ProhibitedTerm{Text: "badword", Severity: 0})

	for _, ch := range []string{"addon", "system"} {
		d := e.Evaluate(alice, Message{Text: "badword", Channel: ch}, t0)
		if !d.Allowed {
			t.Errorf("channel %q: got blocked, want exempt", ch)
		}
	}
	d := e.Evaluate(alice, Message{Text: "badword", Channel: "say"}, t0)
	if d.Allowed {
		t.Error("channel say: got allowed, want blocked")
	}
}

func TestEvaluate_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	e := newTestEngine(cfg, ProhibitedTerm{Text: "badword", Severity: 0})

	d := e.Evaluate(alice, Message{Text: "badword"}, t0)
	if !d.Allowed {
		t.Errorf("disabled engine blocked message: %+v", d)
	}
}

func TestEvaluate_ViolationRecord(t *testing.T) {
	e := newTestEngine(DefaultConfig(), ProhibitedTerm{Text: "badword", Severity: 0})
	text := "You are a Bad Word!"

	d := e.Evaluate(alice, Message{Text: text}, t0)
	if d.Record == nil {
		t.Fatal("expected violation record")
	}
	r := d.Record
	if r.Text != text {
		t.Errorf("Record.Text = %q, want original %q", r.Text, text)
	}
	if r.UserID != alice.ID || r.DisplayName != alice.DisplayName || r.AccountName != alice.AccountName {
		t.Errorf("Record identity = %+v", r)
	}
	if !r.Timestamp.Equal(t0) || r.IncidentID == "" {
		t.Errorf("Record timestamp/id = %v/%q", r.Timestamp, r.IncidentID)
	}

	cfg := DefaultConfig()
	cfg.LogEnabled = false
	e = newTestEngine(cfg, ProhibitedTerm{Text: "badword", Severity: 0})
	if d := e.Evaluate(alice, Message{Text: text}, t0); d.Record != nil {
		t.Error("record produced with logging disabled")
	}
}

func TestEvaluate_ReloadNoStaleTerms(t *testing.T) {
	e := newTestEngine(DefaultConfig())
	e.Reload([]ProhibitedTerm{{Text: "x", Severity: 0}})
	e.Reload([]ProhibitedTerm{{Text: "y", Severity: 1}})

	d := e.Evaluate(alice, Message{Text: "xxx"}, t0)
	if !d.Allowed {
		t.Errorf("stale term blocked message: %+v", d)
	}
}

func BenchmarkEvaluate(b *testing.B) {
	var terms []ProhibitedTerm
	for _, w := range strings.Fields("alpha bravo charlie delta echo foxtrot golf hotel india juliet") {
		terms = append(terms, ProhibitedTerm{Text: w + "zz", Severity: 0})
	}
	e := newTestEngine(DefaultConfig(), terms...)
	msg := Message{Text: "hey how are you doing today? I love chatting about music and movies."}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Evaluate(alice, msg, t0)
	}
}
