package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingMirror struct {
	calls atomic.Int32
	err   error
}

func (m *countingMirror) MirrorNow(context.Context) error {
	m.calls.Add(1)
	return m.err
}

func TestDefaultMirrorProcessorConfig(t *testing.T) {
	config := DefaultMirrorProcessorConfig()

	if config.Interval != 5*time.Minute {
		t.Errorf("expected Interval 5m, got %v", config.Interval)
	}
}

func TestNewMirrorProcessor_ZeroIntervalUsesDefault(t *testing.T) {
	processor := NewMirrorProcessor(&countingMirror{}, MirrorProcessorConfig{})

	if processor.config.Interval != 5*time.Minute {
		t.Errorf("expected default interval, got %v", processor.config.Interval)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestMirrorProcessor_StartTwice(t *testing.T) {
	processor := NewMirrorProcessor(&countingMirror{}, MirrorProcessorConfig{Interval: time.Hour})
	ctx := context.Background()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("first start: %v", err)
	}
	defer processor.Stop(ctx)

	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}
}

func TestMirrorProcessor_StopNotRunning(t *testing.T) {
	processor := NewMirrorProcessor(&countingMirror{}, DefaultMirrorProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop on idle processor returned %v", err)
	}
}

func TestMirrorProcessor_RunsOnTicker(t *testing.T) {
	mirror := &countingMirror{err: errors.New("sheet unavailable")}
	processor := NewMirrorProcessor(mirror, MirrorProcessorConfig{Interval: 10 * time.Millisecond})
	ctx := context.Background()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for processor.Runs() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if processor.Runs() < 3 {
		t.Errorf("expected at least 3 passes, got %d", processor.Runs())
	}
	if int(mirror.calls.Load()) != processor.Runs() {
		t.Errorf("calls %d != runs %d", mirror.calls.Load(), processor.Runs())
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}
