package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingProcessor struct {
	calls atomic.Int32
	err   error
}

func (c *countingProcessor) ProcessPending(context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	if got := DefaultSyncProcessorConfig().PollInterval; got != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", got)
	}
	p := NewSyncProcessor(&countingProcessor{}, SyncProcessorConfig{})
	if p.config.PollInterval != 10*time.Second {
		t.Errorf("zero interval should fall back to default, got %v", p.config.PollInterval)
	}
}

func TestSyncProcessor_RunsUntilStopped(t *testing.T) {
	pending := &countingProcessor{err: errors.New("sheet unavailable")}
	p := NewSyncProcessor(pending, SyncProcessorConfig{PollInterval: 10 * time.Millisecond})

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for pending.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pending.calls.Load() < 2 {
		t.Fatalf("expected repeated sweeps despite errors, got %d", pending.calls.Load())
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := p.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("processor should be stopped")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	p := NewSyncProcessor(&countingProcessor{}, DefaultSyncProcessorConfig())
	if err := p.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestSyncProcessor_ContextCancelEndsLoop(t *testing.T) {
	p := NewSyncProcessor(&countingProcessor{}, SyncProcessorConfig{PollInterval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	select {
	case <-p.doneCh:
	case <-time.After(time.Second):
		t.Fatal("loop did not exit on context cancel")
	}
	if p.IsRunning() {
		t.Fatal("processor should report stopped after context cancel")
	}
}
