package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MirrorProcessorConfig holds configuration for the periodic mirror.
type MirrorProcessorConfig struct {
	// Interval is how often the full ledger is mirrored (default: 5m)
	Interval time.Duration
}

// DefaultMirrorProcessorConfig returns sensible defaults
func DefaultMirrorProcessorConfig() MirrorProcessorConfig {
	return MirrorProcessorConfig{
		Interval: 5 * time.Minute,
	}
}

// Mirrorer performs one full mirror pass.
type Mirrorer interface {
	MirrorNow(ctx context.Context) error
}

// MirrorProcessor re-mirrors the ledger on a timer, as a backstop for lost
// events and for edits made to the ledger file outside the application.
type MirrorProcessor struct {
	mirror Mirrorer
	config MirrorProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	runs    int
}

// NewMirrorProcessor creates a new mirror processor
func NewMirrorProcessor(mirror Mirrorer, config MirrorProcessorConfig) *MirrorProcessor {
	if config.Interval <= 0 {
		config.Interval = DefaultMirrorProcessorConfig().Interval
	}
	return &MirrorProcessor{
		mirror: mirror,
		config: config,
	}
}

// Start begins the mirror loop. Returns an error if already running.
func (p *MirrorProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("mirror processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Mirror processor started", "interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for the current pass.
func (p *MirrorProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Mirror processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Mirror processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *MirrorProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Runs returns the number of completed mirror passes.
func (p *MirrorProcessor) Runs() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runs
}

func (p *MirrorProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pass(ctx)
		}
	}
}

func (p *MirrorProcessor) pass(ctx context.Context) {
	if err := p.mirror.MirrorNow(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic mirror failed", "error", err)
	}
	p.mu.Lock()
	p.runs++
	p.mu.Unlock()
}
