package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledgerbridge/internal/amqp"
	"ledgerbridge/internal/core"
	"ledgerbridge/internal/services"
)

type stubRunner struct {
	report *services.CycleReport
	err    error
}

func (r *stubRunner) RunCycle(context.Context) (*services.CycleReport, error) {
	return r.report, r.err
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.CycleCompletedMessage
}

func (p *recordingPublisher) PublishCycleCompleted(_ context.Context, msg *amqp.CycleCompletedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func sampleReport() *services.CycleReport {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &services.CycleReport{
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Budgets: []services.BudgetReport{
			{BudgetID: "a", Emitted: map[core.EntityClass]int{core.ClassAccounts: 2, core.ClassPayees: 0}},
			{BudgetID: "b", Emitted: map[core.EntityClass]int{core.ClassAccounts: 1}},
			{BudgetID: "c", Err: errors.New("boom")},
		},
		Notified: []string{"t1", "t2"},
	}
}

func TestHandleSyncRequest_PublishesWithRequestID(t *testing.T) {
	pub := &recordingPublisher{}
	processor := services.NewSyncProcessor(&stubRunner{report: sampleReport()}, services.DefaultSyncProcessorConfig())
	w := NewSyncWorker(processor, pub)

	msg := &amqp.SyncRequestMessage{RequestID: "req-1", Source: "cron"}
	if err := w.HandleSyncRequest(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncRequest: %v", err)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("expected one event, got %d", len(pub.msgs))
	}
	got := pub.msgs[0]
	if got.RequestID != "req-1" || got.Budgets != 3 || got.Failed != 1 || got.Notified != 2 {
		t.Fatalf("unexpected event %+v", got)
	}
	if got.Changes["accounts"] != 3 {
		t.Fatalf("expected 3 account changes, got %v", got.Changes)
	}
	if _, ok := got.Changes["payees"]; ok {
		t.Fatalf("zero counts must be omitted")
	}
}

func TestHandleSyncRequest_ReturnsCycleError(t *testing.T) {
	pub := &recordingPublisher{}
	processor := services.NewSyncProcessor(&stubRunner{err: errors.New("ledger down")}, services.DefaultSyncProcessorConfig())
	w := NewSyncWorker(processor, pub)

	err := w.HandleSyncRequest(context.Background(), &amqp.SyncRequestMessage{RequestID: "r"})
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Error != "ledger down" {
		t.Fatalf("expected error event, got %+v", pub.msgs)
	}
}

func TestCycleCompleted_NilReport(t *testing.T) {
	msg := CycleCompleted("", nil, nil)
	if msg.Budgets != 0 || msg.Changes != nil || msg.Error != "" {
		t.Fatalf("unexpected message %+v", msg)
	}
}
