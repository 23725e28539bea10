package engine

import (
	"testing"
	"time"

	"github.com/frontline-chat/frontline/internal/testutil/testlog"
)

func TestCookieJarSingleUse(t *testing.T) {
	testlog.Start(t)

	jar := NewCookieJar(time.Minute)
	if err := jar.Issue("alice", 12345); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !jar.Validate("alice", 12345) {
		t.Fatalf("expected first validation to pass")
	}
	if jar.Validate("alice", 12345) {
		t.Fatalf("cookie should be consumed by the first validation")
	}
}

func TestCookieJarWrongCookieStillConsumes(t *testing.T) {
	testlog.Start(t)

	jar := NewCookieJar(time.Minute)
	if err := jar.Issue("bob", 777); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if jar.Validate("bob", 778) {
		t.Fatalf("wrong cookie validated")
	}
	if jar.Validate("bob", 777) {
		t.Fatalf("entry should be gone after the failed attempt")
	}
}

func TestCookieJarIssueReplaces(t *testing.T) {
	testlog.Start(t)

	jar := NewCookieJar(time.Minute)
	if err := jar.Issue("carol", 1); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := jar.Issue("carol", 2); err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if jar.Validate("carol", 1) {
		t.Fatalf("replaced cookie validated")
	}
	if err := jar.Issue("carol", 3); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !jar.Validate("carol", 3) {
		t.Fatalf("current cookie rejected")
	}
}

func TestCookieJarValidateBadArgsDoNotConsume(t *testing.T) {
	testlog.Start(t)

	jar := NewCookieJar(time.Minute)
	if err := jar.Issue("alice", 555); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if jar.Validate("alice", 0) {
		t.Fatalf("zero cookie validated")
	}
	if jar.Validate("", 555) {
		t.Fatalf("empty id validated")
	}
	if !jar.Validate("alice", 555) {
		t.Fatalf("stored cookie burned by a malformed attempt")
	}
}

func TestCookieJarRejectsBadArgs(t *testing.T) {
	testlog.Start(t)

	jar := NewCookieJar(time.Minute)
	if err := jar.Issue("", 5); err == nil {
		t.Fatalf("expected error for empty id")
	}
	if err := jar.Issue("dave", 0); err == nil {
		t.Fatalf("expected error for zero cookie")
	}
	if jar.Len() != 0 {
		t.Fatalf("rejected issue touched storage: len=%d", jar.Len())
	}
}

func TestCookieJarExpiry(t *testing.T) {
	testlog.Start(t)

	jar := NewCookieJar(10 * time.Minute)
	now := time.Unix(1_700_000_000, 0)
	jar.now = func() time.Time { return now }

	if err := jar.Issue("erin", 42); err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(10*time.Minute - time.Second)
	if !jar.Validate("erin", 42) {
		t.Fatalf("cookie should still be valid inside the ttl")
	}

	if err := jar.Issue("erin", 43); err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(10 * time.Minute)
	if jar.Validate("erin", 43) {
		t.Fatalf("expired cookie validated")
	}
}

func TestCookieJarSweepRemovesOnlyExpired(t *testing.T) {
	testlog.Start(t)

	jar := NewCookieJar(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	jar.now = func() time.Time { return now }

	if err := jar.Issue("old", 1); err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(59 * time.Second)
	if err := jar.Issue("fresh", 2); err != nil {
		t.Fatalf("issue: %v", err)
	}
	now = now.Add(2 * time.Second)

	if got := jar.SweepExpired(); got != 1 {
		t.Fatalf("swept %d entries, want 1", got)
	}
	if jar.Len() != 1 {
		t.Fatalf("len=%d after sweep, want 1", jar.Len())
	}
	if !jar.Validate("fresh", 2) {
		t.Fatalf("fresh cookie lost in sweep")
	}
}
