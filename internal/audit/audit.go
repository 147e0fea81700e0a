// Package audit writes ledger operations and events to structured logs.
package audit

import (
	"context"

	"github.com/MarkoPoloResearchLab/campaigns/pkg/ledger"
	"go.uber.org/zap"
)

var (
	_ ledger.OperationLogger = (*OperationLogger)(nil)
	_ ledger.EventSink       = (*EventLogger)(nil)
)

// OperationLogger logs every attempted ledger operation.
type OperationLogger struct {
	logger *zap.Logger
}

// NewOperationLogger wraps a zap logger.
func NewOperationLogger(logger *zap.Logger) *OperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperationLogger{logger: logger.Named("operations")}
}

// LogOperation implements ledger.OperationLogger.
func (operationLogger *OperationLogger) LogOperation(_ context.Context, entry ledger.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("caller", entry.Caller.String()),
		zap.Int64("campaign_id", entry.CampaignID.Int64()),
		zap.Int64("units", entry.Units.Int64()),
		zap.Int64("amount", entry.Amount.Int64()),
		zap.String("status", entry.Status),
	}
	if entry.Error != nil {
		operationLogger.logger.Warn("ledger operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	operationLogger.logger.Info("ledger operation", fields...)
}

// EventLogger logs committed campaign events.
type EventLogger struct {
	logger *zap.Logger
}

// NewEventLogger wraps a zap logger.
func NewEventLogger(logger *zap.Logger) *EventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventLogger{logger: logger.Named("events")}
}

// Publish implements ledger.EventSink.
func (eventLogger *EventLogger) Publish(_ context.Context, event ledger.Event) {
	fields := []zap.Field{
		zap.String("event_id", event.EventID),
		zap.String("type", event.Type.String()),
		zap.Int64("campaign_id", event.CampaignID.Int64()),
		zap.String("actor", event.Actor.String()),
		zap.Int64("units", event.Units.Int64()),
		zap.Int64("amount", event.Amount.Int64()),
	}
	if event.TransferReference != "" {
		fields = append(fields, zap.String("transfer_reference", event.TransferReference))
	}
	eventLogger.logger.Info("campaign event", fields...)
}
