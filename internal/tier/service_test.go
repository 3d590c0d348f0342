// AngelaMos | 2026
// service_test.go

package tier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carterperez-dev/tierform/internal/core"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepository(time.Hour), testCatalog(), 4)
	svc.now = func() time.Time { return testNow }
	return svc
}

func ptr[T any](v T) *T {
	return &v
}

func TestServiceEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	view, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id := view.SessionID
	if id == "" || view.Status != StatusIdle || len(view.Tiers) != 4 {
		t.Fatalf("unexpected initial view %+v", view)
	}

	if _, err := svc.UpdateTier(ctx, id, 0, UpdateTierRequest{Default: ptr(true)}); err != nil {
		t.Fatal(err)
	}
	view, err = svc.SetMarkup(ctx, id, SetMarkupRequest{
		Finance: ptr(1.55),
		Lease:   ptr(0.001239),
	})
	if err != nil {
		t.Fatal(err)
	}

	for i, tv := range view.Tiers {
		if tv.New.Finance.Captive != 1.5 {
			t.Fatalf("tier %d not recomputed: %+v", i, tv.New)
		}
		if wantLocked := i != 0; tv.DefaultLocked != wantLocked {
			t.Fatalf("tier %d defaultLocked = %v", i, tv.DefaultLocked)
		}
	}

	view, err = svc.Submit(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if view.Status != StatusExported || view.Export == nil {
		t.Fatalf("expected exported view, got %+v", view)
	}

	result, err := svc.LatestExport(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if result.Document != view.Export.Document || result.TierCount != 4 {
		t.Fatalf("latest export mismatch: %+v", result)
	}

	view, err = svc.AddTier(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if view.Export == nil || view.Export.TierCount != 4 {
		t.Fatal("export should be redisplayed until the next submit")
	}
	if view.Tiers[4].Label != "Poor credit" {
		t.Fatalf("added tier = %q", view.Tiers[4].Label)
	}
}

func TestServiceRejectedInteractionLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	view, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id := view.SessionID

	if _, err := svc.UpdateTier(ctx, id, 0, UpdateTierRequest{Default: ptr(true)}); err != nil {
		t.Fatal(err)
	}

	_, err = svc.UpdateTier(ctx, id, 2, UpdateTierRequest{
		Label:   ptr("should not stick"),
		Default: ptr(true),
	})
	if !errors.Is(err, ErrDefaultLocked) {
		t.Fatalf("expected ErrDefaultLocked, got %v", err)
	}

	view, err = svc.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if view.Tiers[2].Label != "Good credit" {
		t.Fatalf("partial update leaked: %q", view.Tiers[2].Label)
	}
}

func TestServiceRemoveFloor(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRepository(time.Hour), testCatalog(), 1)

	view, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.RemoveTier(ctx, view.SessionID)
	if !errors.Is(err, ErrFloorViolation) {
		t.Fatalf("expected ErrFloorViolation, got %v", err)
	}

	view, err = svc.Get(ctx, view.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Tiers) != 1 {
		t.Fatalf("expected 1 tier, got %d", len(view.Tiers))
	}
}

func TestServiceOverrides(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	view, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}
	id := view.SessionID

	view, err = svc.SetOverride(ctx, id, 1, WhichUsed, SetOverrideRequest{
		Finance: ptr(0.88),
		Lease:   ptr(0.0000777),
	})
	if err != nil {
		t.Fatal(err)
	}
	used := view.Tiers[1].Used
	if !view.Tiers[1].CustomUsed.Enabled || used.Finance.Captive != 0.8 || used.Lease.NonCaptive != 0.00007 {
		t.Fatalf("used override not applied: %+v", view.Tiers[1])
	}
	if view.Tiers[1].New.Finance.Captive != 0 {
		t.Fatalf("new block should keep shared markup: %+v", view.Tiers[1].New)
	}

	view, err = svc.ToggleOverride(ctx, id, 1, WhichUsed, false)
	if err != nil {
		t.Fatal(err)
	}
	if view.Tiers[1].Used.Finance.Captive != 0 {
		t.Fatalf("toggle off should fall back to new values: %+v", view.Tiers[1].Used)
	}
	if view.Tiers[1].CustomUsed.Finance != 0.88 {
		t.Fatalf("custom value should be retained: %+v", view.Tiers[1].CustomUsed)
	}
}

func TestServiceUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	if _, err := svc.AddTier(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.End(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceLatestExportBeforeSubmit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	view, err := svc.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Submit(ctx, view.SessionID); !errors.Is(err, ErrDefaultCount) {
		t.Fatalf("expected ErrDefaultCount, got %v", err)
	}
	if _, err := svc.LatestExport(ctx, view.SessionID); !errors.Is(err, ErrNoExport) {
		t.Fatalf("expected ErrNoExport, got %v", err)
	}
}
