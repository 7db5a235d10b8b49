package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sanjarbek17/MedAI/internal/models"
)

// fakeFleet fails the first failN upserts, then succeeds.
type fakeFleet struct {
	failN int
	calls int
}

func (f *fakeFleet) Upsert(ctx context.Context, driverID string, loc models.Location) error {
	f.calls++
	if f.calls <= f.failN {
		return errors.New("redis unavailable")
	}
	return nil
}

func TestUpdateFleetWithRetrySucceedsFirstTry(t *testing.T) {
	f := &fakeFleet{}
	ev := models.ActorLocationEvent{ActorID: "d1", Location: models.Location{Lat: 1, Lng: 2}}

	if err := updateFleetWithRetry(context.Background(), f, ev, 3, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("expected 1 call, got %d", f.calls)
	}
}

func TestUpdateFleetWithRetryRecovers(t *testing.T) {
	f := &fakeFleet{failN: 2}
	ev := models.ActorLocationEvent{ActorID: "d1"}

	if err := updateFleetWithRetry(context.Background(), f, ev, 3, time.Millisecond); err != nil {
		t.Fatalf("expected recovery within retries, got %v", err)
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", f.calls)
	}
}

func TestUpdateFleetWithRetryExhausted(t *testing.T) {
	f := &fakeFleet{failN: 10}
	ev := models.ActorLocationEvent{ActorID: "d1"}

	if err := updateFleetWithRetry(context.Background(), f, ev, 3, time.Millisecond); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", f.calls)
	}
}

func TestSplitBrokers(t *testing.T) {
	cases := map[string][]string{
		"":                 nil,
		"localhost:9092":   {"localhost:9092"},
		"a:9092, b:9092, ": {"a:9092", "b:9092"},
		",,c:9092,":        {"c:9092"},
	}
	for in, want := range cases {
		got := splitBrokers(in)
		if len(got) != len(want) {
			t.Fatalf("splitBrokers(%q) = %v, want %v", in, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("splitBrokers(%q) = %v, want %v", in, got, want)
			}
		}
	}
}
