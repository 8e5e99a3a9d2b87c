package presence

import (
	"context"
	"testing"
	"time"

	telemetry "fleet-cloud/internal/telemetry/domain"
)

func TestMemoryCache_SetGetRoundtrip(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	entry := Entry{RobotID: "A1", Telemetry: telemetry.Report{Battery: 87, Status: "MOVING"}, ReceivedAt: time.Now().UTC()}
	if err := cache.Set(ctx, "A1", entry, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, ok, err := cache.Get(ctx, "A1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected entry present before TTL")
	}
	if got.Telemetry.Battery != 87 || got.Telemetry.Status != "MOVING" {
		t.Fatalf("unexpected entry: %+v", got)
	}
}

func TestMemoryCache_TTLBoundary(t *testing.T) {
	now := time.Now().UTC()
	current := now
	cache := NewMemoryCache().WithClock(func() time.Time { return current })
	ctx := context.Background()

	entry := Entry{RobotID: "A1", Telemetry: telemetry.Report{Battery: 50, Status: "IDLE"}, ReceivedAt: now}
	if err := cache.Set(ctx, "A1", entry, time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	if ok, _ := cache.Exists(ctx, "A1"); !ok {
		t.Fatal("expected entry present immediately after write")
	}

	current = now.Add(1500 * time.Millisecond)
	if ok, _ := cache.Exists(ctx, "A1"); ok {
		t.Fatal("expected entry expired after 1.5s with TTL=1s")
	}
}

func TestMemoryCache_AbsentNeverReported(t *testing.T) {
	cache := NewMemoryCache()
	ok, err := cache.Exists(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expected offline for robot that never reported")
	}
}

func TestMemoryCache_OverwriteResetsTTL(t *testing.T) {
	now := time.Now().UTC()
	current := now
	cache := NewMemoryCache().WithClock(func() time.Time { return current })
	ctx := context.Background()

	first := Entry{RobotID: "A1", Telemetry: telemetry.Report{Battery: 10, Status: "IDLE"}, ReceivedAt: now}
	if err := cache.Set(ctx, "A1", first, time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}

	current = now.Add(900 * time.Millisecond)
	second := Entry{RobotID: "A1", Telemetry: telemetry.Report{Battery: 9, Status: "MOVING"}, ReceivedAt: current}
	if err := cache.Set(ctx, "A1", second, time.Second); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	current = now.Add(1800 * time.Millisecond)
	got, ok, _ := cache.Get(ctx, "A1")
	if !ok {
		t.Fatal("expected entry alive after overwrite reset the TTL")
	}
	if got.Telemetry.Battery != 9 {
		t.Fatalf("expected latest overwrite, got battery %d", got.Telemetry.Battery)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	entry := Entry{RobotID: "A1", Telemetry: telemetry.Report{Battery: 80, Status: "IDLE"}, ReceivedAt: time.Now().UTC()}
	_ = cache.Set(ctx, "A1", entry, time.Minute)
	if err := cache.Delete(ctx, "A1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, _ := cache.Exists(ctx, "A1"); ok {
		t.Fatal("expected entry gone after delete")
	}
}
