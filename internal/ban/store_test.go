package ban

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestStore creates a Store connected to a local Redis instance and flushes
// all test ban keys before returning. Tests that call this helper require a
// running Redis on localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	clean := func() {
		iter := client.Scan(ctx, 0, BanPrefix+"test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	clean()
	t.Cleanup(func() {
		clean()
		client.Close()
	})
	return NewStore(client)
}

func TestIsBanned_NotBanned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	banned, remaining, reason, err := store.IsBanned(ctx, "test_no_ban")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if banned {
		t.Errorf("expected not banned, got banned (remaining=%d reason=%q)", remaining, reason)
	}
}

func TestSuspendAccount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := "test_suspend"

	if err := store.SuspendAccount(ctx, account, 30*time.Second, "prohibited term", "chatfilter"); err != nil {
		t.Fatalf("SuspendAccount() error: %v", err)
	}

	banned, remaining, reason, err := store.IsBanned(ctx, account)
	if err != nil {
		t.Fatalf("IsBanned() error: %v", err)
	}
	if !banned {
		t.Fatal("expected banned=true")
	}
	if reason != "prohibited term" {
		t.Errorf("expected reason=%q, got %q", "prohibited term", reason)
	}
	if remaining <= 0 || remaining > 30 {
		t.Errorf("expected remaining in (0,30], got %d", remaining)
	}
}

func TestSuspendAccount_AlreadySuspended(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := "test_double"

	if err := store.SuspendAccount(ctx, account, time.Hour, "first", "chatfilter"); err != nil {
		t.Fatalf("first SuspendAccount() error: %v", err)
	}
	err := store.SuspendAccount(ctx, account, 10*time.Second, "second", "chatfilter")
	if !errors.Is(err, ErrAlreadySuspended) {
		t.Fatalf("second SuspendAccount() error = %v, want ErrAlreadySuspended", err)
	}

	_, remaining, reason, _ := store.IsBanned(ctx, account)
	if reason != "first" || remaining < 3500 {
		t.Errorf("existing suspension changed: reason=%q remaining=%d", reason, remaining)
	}
}

func TestSuspendAccount_Invalid(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	if err := store.SuspendAccount(ctx, "", time.Minute, "r", "i"); !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("empty account error = %v, want ErrInvalidAccount", err)
	}
	if err := store.SuspendAccount(ctx, "test_x", 0, "r", "i"); !errors.Is(err, ErrInvalidAccount) {
		t.Errorf("zero duration error = %v, want ErrInvalidAccount", err)
	}
}

func TestUnban(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	account := "test_unban"

	if err := store.SuspendAccount(ctx, account, time.Minute, "test", "chatfilter"); err != nil {
		t.Fatalf("SuspendAccount() error: %v", err)
	}
	if err := store.Unban(ctx, account); err != nil {
		t.Fatalf("Unban() error: %v", err)
	}
	banned, _, _, err := store.IsBanned(ctx, account)
	if err != nil {
		t.Fatalf("IsBanned() error: %v", err)
	}
	if banned {
		t.Error("expected not banned after Unban()")
	}
}
