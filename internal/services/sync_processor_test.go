package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type countingRunner struct {
	calls   atomic.Int32
	block   chan struct{}
	started chan struct{}
	err     error
}

func (r *countingRunner) RunCycle(context.Context) (*CycleReport, error) {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.block != nil {
		<-r.block
	}
	return &CycleReport{}, r.err
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 5*time.Minute {
		t.Errorf("expected PollInterval 5m, got %v", config.PollInterval)
	}
	if !config.RunOnStart {
		t.Error("expected RunOnStart by default")
	}
}

func TestNewSyncProcessor_DefaultsInterval(t *testing.T) {
	processor := NewSyncProcessor(&countingRunner{}, SyncProcessorConfig{})
	if processor.config.PollInterval != 5*time.Minute {
		t.Errorf("expected default interval, got %v", processor.config.PollInterval)
	}
}

func TestSyncProcessor_IsRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingRunner{}, DefaultSyncProcessorConfig())

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestSyncProcessor_StartStop(t *testing.T) {
	runner := &countingRunner{}
	processor := NewSyncProcessor(runner, SyncProcessorConfig{PollInterval: 10 * time.Millisecond, RunOnStart: true})
	ctx := context.Background()

	if err := processor.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := processor.Start(ctx); err == nil {
		t.Error("expected error when starting already running processor")
	}

	deadline := time.Now().Add(2 * time.Second)
	for runner.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if runner.calls.Load() < 2 {
		t.Fatalf("expected cycles on start and on tick, got %d", runner.calls.Load())
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := processor.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if processor.IsRunning() {
		t.Error("processor should not be running after Stop")
	}
}

func TestSyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewSyncProcessor(&countingRunner{}, DefaultSyncProcessorConfig())

	if err := processor.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestSyncProcessor_RunOnceDoesNotOverlap(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{}), started: make(chan struct{}, 1)}
	processor := NewSyncProcessor(runner, DefaultSyncProcessorConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		processor.RunOnce(ctx)
	}()
	<-runner.started

	if _, ran, _ := processor.RunOnce(ctx); ran {
		t.Error("second cycle must be skipped while one is running")
	}
	close(runner.block)
	wg.Wait()

	if runner.calls.Load() != 1 {
		t.Errorf("expected one cycle, got %d", runner.calls.Load())
	}
}

func TestSyncProcessor_OnCycle(t *testing.T) {
	runner := &countingRunner{err: errors.New("ledger down")}
	processor := NewSyncProcessor(runner, DefaultSyncProcessorConfig())

	var got error
	processor.OnCycle = func(_ context.Context, _ *CycleReport, err error) { got = err }

	_, ran, err := processor.RunOnce(context.Background())
	if !ran || err == nil || got != err {
		t.Fatalf("expected OnCycle to see the cycle error, got ran=%v err=%v seen=%v", ran, err, got)
	}
}
