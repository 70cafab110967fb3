package worker

import (
	"context"
	"log/slog"

	"ledgerbridge/internal/amqp"
	"ledgerbridge/internal/services"
)

// EventPublisher announces finished cycles.
type EventPublisher interface {
	PublishCycleCompleted(ctx context.Context, msg *amqp.CycleCompletedMessage) error
}

// SyncWorker runs sync cycles on request and on a schedule, and publishes a
// summary of each.
type SyncWorker struct {
	processor *services.SyncProcessor
	events    EventPublisher
}

type requestIDKey struct{}

// NewSyncWorker wires the worker into processor so every cycle, scheduled or
// requested, is announced. events may be nil.
func NewSyncWorker(processor *services.SyncProcessor, events EventPublisher) *SyncWorker {
	w := &SyncWorker{processor: processor, events: events}
	processor.OnCycle = w.publish
	return w
}

// HandleSyncRequest processes a single sync request from AMQP. A request
// arriving while a cycle runs is absorbed by that cycle.
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	slog.InfoContext(ctx, "Processing sync request",
		"request_id", msg.RequestID,
		"source", msg.Source)

	ctx = context.WithValue(ctx, requestIDKey{}, msg.RequestID)
	_, ran, err := w.processor.RunOnce(ctx)
	if !ran {
		slog.InfoContext(ctx, "Sync already in progress, request absorbed",
			"request_id", msg.RequestID)
		return nil
	}
	return err
}

func (w *SyncWorker) publish(ctx context.Context, report *services.CycleReport, cycleErr error) {
	if w.events == nil {
		return
	}
	requestID, _ := ctx.Value(requestIDKey{}).(string)
	msg := CycleCompleted(requestID, report, cycleErr)
	if err := w.events.PublishCycleCompleted(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to publish cycle completed event", "error", err)
	}
}

// CycleCompleted converts a cycle report into its event message.
func CycleCompleted(requestID string, report *services.CycleReport, cycleErr error) *amqp.CycleCompletedMessage {
	msg := &amqp.CycleCompletedMessage{RequestID: requestID}
	if cycleErr != nil {
		msg.Error = cycleErr.Error()
	}
	if report == nil {
		return msg
	}
	msg.StartedAt = report.StartedAt
	msg.FinishedAt = report.FinishedAt
	msg.Budgets = len(report.Budgets)
	msg.Failed = report.Failed()
	msg.Notified = len(report.Notified)
	for _, b := range report.Budgets {
		for class, n := range b.Emitted {
			if n == 0 {
				continue
			}
			if msg.Changes == nil {
				msg.Changes = make(map[string]int)
			}
			msg.Changes[class.String()] += n
		}
	}
	return msg
}
