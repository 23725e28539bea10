package engine

import (
	"context"
	"testing"
	"time"

	"github.com/frontline-chat/frontline/internal/testutil/testlog"
)

func TestNextBackoffDelayFixed(t *testing.T) {
	testlog.Start(t)

	cfg := BackoffConfig{InitialDelay: time.Second}
	for attempt := 1; attempt <= 5; attempt++ {
		if got := NextBackoffDelay(cfg, attempt, nil); got != time.Second {
			t.Fatalf("attempt %d: %v, want 1s", attempt, got)
		}
	}
}

func TestNextBackoffDelayGrowsAndCaps(t *testing.T) {
	testlog.Start(t)

	cfg := BackoffConfig{InitialDelay: time.Second, Multiplier: 2, MaxDelay: 5 * time.Second}
	if got := NextBackoffDelay(cfg, 2, nil); got != 2*time.Second {
		t.Fatalf("attempt 2: %v, want 2s", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != 4*time.Second {
		t.Fatalf("attempt 3: %v, want 4s", got)
	}
	if got := NextBackoffDelay(cfg, 10, nil); got != 5*time.Second {
		t.Fatalf("attempt 10: %v, want the 5s cap", got)
	}
}

func TestSleepCtxHonorsCancel(t *testing.T) {
	testlog.Start(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if sleepCtx(ctx, time.Minute) {
		t.Fatalf("cancelled sleep reported completion")
	}
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Fatalf("completed sleep reported cancellation")
	}
}

func TestResetForBackendLossDropsClientsAndRooms(t *testing.T) {
	testlog.Start(t)

	e, _ := newTestEngine(t, RoleChat)
	s, _ := clientSession(t, e, 44000)
	s.Login("alice")
	e.rooms.Create(1)
	e.rooms.Join(s, 1)

	e.resetForBackendLoss()

	if e.rooms.Len() != 0 {
		t.Fatalf("rooms survived backend loss")
	}
	if !s.Closed() {
		t.Fatalf("client session survived backend loss")
	}
	if b := e.reg.Backend(); b == nil || b.Closed() {
		t.Fatalf("backend slot should be left to the supervisor")
	}
}
