package gametimer

import (
	"sync"
	"testing"
	"time"

	"quizrealm/domain"
)

func TestStartTimerInvokesOnExpire(t *testing.T) {
	svc := New(nil, nil)
	defer svc.StopAll()

	done := make(chan domain.PIN, 1)
	svc.StartTimer(domain.PIN("111111"), 1, func(pin domain.PIN) {
		done <- pin
	})

	select {
	case pin := <-done:
		if pin != domain.PIN("111111") {
			t.Fatalf("onExpire pin: got %s, want 111111", pin)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("onExpire was not invoked in time")
	}
}

func TestStopTimerPreventsExpire(t *testing.T) {
	svc := New(nil, nil)
	defer svc.StopAll()

	fired := make(chan struct{}, 1)
	svc.StartTimer(domain.PIN("222222"), 1, func(pin domain.PIN) {
		fired <- struct{}{}
	})
	svc.StopTimer(domain.PIN("222222"))

	select {
	case <-fired:
		t.Fatal("onExpire must not fire after StopTimer")
	case <-time.After(2 * time.Second):
	}
}

func TestRestartingTimerCancelsPrevious(t *testing.T) {
	svc := New(nil, nil)
	defer svc.StopAll()

	var mu sync.Mutex
	var expirations int
	svc.StartTimer(domain.PIN("333333"), 1, func(pin domain.PIN) {
		mu.Lock()
		expirations++
		mu.Unlock()
	})
	svc.StartTimer(domain.PIN("333333"), 1, func(pin domain.PIN) {
		mu.Lock()
		expirations++
		mu.Unlock()
	})

	time.Sleep(2 * time.Second)
	mu.Lock()
	got := expirations
	mu.Unlock()
	if got != 1 {
		t.Fatalf("expirations: got %d, want 1 (restart must cancel the first timer)", got)
	}
}

func TestGetElapsedTimeNoTimer(t *testing.T) {
	svc := New(nil, nil)
	if _, ok := svc.GetElapsedTime(domain.PIN("999999")); ok {
		t.Fatal("expected no timer to report false")
	}
}

func TestIsTimeExpiredMissingTimerCountsAsExpired(t *testing.T) {
	svc := New(nil, nil)
	if !svc.IsTimeExpired(domain.PIN("999999")) {
		t.Fatal("a missing timer must count as expired")
	}
}

func TestGetTimerSyncInactive(t *testing.T) {
	svc := New(nil, nil)
	sync := svc.GetTimerSync(domain.PIN("000000"))
	if sync.Active {
		t.Fatal("expected inactive sync for unknown pin")
	}
}
