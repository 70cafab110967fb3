package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// CycleRunner runs one sync cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*CycleReport, error)
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often a sync cycle runs (default: 5m)
	PollInterval time.Duration

	// RunOnStart runs a cycle as soon as the processor starts (default: true)
	RunOnStart bool
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 5 * time.Minute,
		RunOnStart:   true,
	}
}

// SyncProcessor runs sync cycles on a ticker. Cycles never overlap: a tick or
// request arriving while a cycle runs is dropped.
type SyncProcessor struct {
	runner CycleRunner
	config SyncProcessorConfig

	// OnCycle, if set, is called after every completed cycle.
	OnCycle func(ctx context.Context, report *CycleReport, err error)

	cycleMu sync.Mutex

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncProcessor creates a new sync processor
func NewSyncProcessor(runner CycleRunner, config SyncProcessorConfig) *SyncProcessor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultSyncProcessorConfig().PollInterval
	}
	return &SyncProcessor{
		runner: runner,
		config: config,
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"poll_interval", p.config.PollInterval)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// RunOnce runs a cycle now unless one is already in progress, in which case
// it reports false.
func (p *SyncProcessor) RunOnce(ctx context.Context) (*CycleReport, bool, error) {
	if !p.cycleMu.TryLock() {
		slog.DebugContext(ctx, "Sync cycle already in progress, skipping")
		return nil, false, nil
	}
	defer p.cycleMu.Unlock()

	report, err := p.runner.RunCycle(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Sync cycle failed", "error", err)
	}
	if p.OnCycle != nil {
		p.OnCycle(ctx, report, err)
	}
	return report, true, err
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	if p.config.RunOnStart {
		p.RunOnce(ctx)
	}

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}
