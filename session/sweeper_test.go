package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSweeperRunOnce(t *testing.T) {
	ctx := context.Background()
	var seen time.Time
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSweeper(time.Minute)
	s.now = func() time.Time { return now }
	s.Add("sessions", SweepFunc(func(_ context.Context, at time.Time) (int, error) {
		seen = at
		return 3, nil
	}))
	s.Add("broken", SweepFunc(func(context.Context, time.Time) (int, error) {
		return 0, errors.New("boom")
	}))
	s.Add("files", SweepFunc(func(context.Context, time.Time) (int, error) {
		return 1, nil
	}))

	counts, err := s.RunOnce(ctx)
	if err == nil {
		t.Fatal("failing target should surface an error")
	}
	if !seen.Equal(now) {
		t.Fatalf("targets should receive the sweeper clock, got %v", seen)
	}
	if counts["sessions"] != 3 || counts["files"] != 1 {
		t.Fatalf("other targets should still run, got %v", counts)
	}
}

func TestSweeperRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- NewSweeper(time.Hour).Run(ctx)
	}()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestSweeperRejectsInvalidInterval(t *testing.T) {
	if err := NewSweeper(0).Run(context.Background()); err == nil {
		t.Fatal("zero interval should be rejected")
	}
}
