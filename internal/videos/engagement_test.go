package videos

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestEngagementSeedsThreadOnFirstPost(t *testing.T) {
	ctx := context.Background()
	e := NewEngagement()

	posted, err := e.PostComment(ctx, "v9", "first!", DemoCreator)
	if err != nil {
		t.Fatalf("PostComment returned error: %v", err)
	}

	thread, err := e.ListComments(ctx, "v9")
	if err != nil {
		t.Fatalf("ListComments returned error: %v", err)
	}
	if len(thread) != 2 || thread[0].ID != posted.ID || thread[1].ID != "c1" {
		t.Fatalf("expected posted comment above the welcome comment, got %+v", thread)
	}

	again, _ := e.ListComments(ctx, "v9")
	if len(again) != 2 {
		t.Fatalf("expected thread seeded once, got %d comments", len(again))
	}
}

func TestEngagementRejectsInvalidRatings(t *testing.T) {
	ctx := context.Background()
	e := NewEngagement()

	for _, rating := range []float64{math.NaN(), -0.5, 5.5, math.Inf(1)} {
		res, err := e.RateVideo(ctx, "v1", rating)
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.Field != "rating" {
			t.Fatalf("RateVideo(%v) expected rating validation error, got %v", rating, err)
		}
		if res.Success {
			t.Fatalf("RateVideo(%v) reported success", rating)
		}
	}

	res, err := e.RateVideo(ctx, "v1", 4.5)
	if err != nil || !res.Success || res.Rating != 4.5 {
		t.Fatalf("expected valid rating stored, got %+v (%v)", res, err)
	}
}

func TestMemorySourceCancelledContext(t *testing.T) {
	for _, latency := range []time.Duration{0, 50 * time.Millisecond} {
		source := NewMemorySource(latency, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := source.FetchVideos(ctx)
		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			t.Fatalf("latency %s: expected NetworkError, got %v", latency, err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("latency %s: expected context.Canceled in chain, got %v", latency, err)
		}
	}
}
