package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"solarforge/internal/infra"
	"solarforge/internal/outbox"
)

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRunAllStopsCleanlyOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunAll(ctx, runnerFunc(blockUntilDone), runnerFunc(blockUntilDone)) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("RunAll() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll did not return after cancel")
	}
}

func TestRunAllFailureStopsSiblings(t *testing.T) {
	boom := errors.New("boom")
	failing := runnerFunc(func(context.Context) error { return boom })
	err := RunAll(context.Background(), runnerFunc(blockUntilDone), failing)
	if !errors.Is(err, boom) {
		t.Fatalf("RunAll() = %v, want boom", err)
	}
}

func TestLoopsBuildsEveryBackgroundLoop(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	store, svc := setup(&now)
	cfg := &infra.Config{
		DonationExpiryWindow: time.Hour,
		ExpirySweepInterval:  time.Minute,
		ExpiryBatchSize:      10,
		LegReplayGrace:       time.Minute,
		LegReplayInterval:    time.Minute,
		OutboxPollInterval:   time.Second,
		OutboxBatchSize:      10,
		OutboxMaxAttempts:    3,
		OutboxLease:          time.Minute,
	}
	loops := Loops(store, svc.Reconciler(), outbox.NewLogPublisher(zerolog.Nop()), cfg, zerolog.Nop())
	if len(loops) != 3 {
		t.Fatalf("Loops() returned %d runners, want 3", len(loops))
	}
	if _, ok := loops[2].(*outbox.Relay); !ok {
		t.Fatalf("third loop is %T, want *outbox.Relay", loops[2])
	}
}
