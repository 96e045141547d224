package audit

import (
	"context"

	"go.uber.org/zap"
)

// Entry describes one administrative mutation for the audit trail.
type Entry struct {
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID string                 `json:"resource_id"`
	Actor      uint                   `json:"actor"`
	Before     interface{}            `json:"before,omitempty"`
	After      interface{}            `json:"after,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Recorder receives audit entries. Recording is best-effort; callers never
// fail a mutation because the sink did.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

// LogRecorder writes audit entries to the service log as structured events.
// Durable audit storage lives behind this interface in another service.
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder(log *zap.Logger) *LogRecorder {
	return &LogRecorder{log: log.Named("audit")}
}

func (r *LogRecorder) Record(ctx context.Context, e Entry) {
	fields := []zap.Field{
		zap.String("action", e.Action),
		zap.String("resource", e.Resource),
		zap.String("resource_id", e.ResourceID),
		zap.Uint("actor", e.Actor),
	}
	if e.Before != nil {
		fields = append(fields, zap.Any("before", e.Before))
	}
	if e.After != nil {
		fields = append(fields, zap.Any("after", e.After))
	}
	if len(e.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", e.Metadata))
	}
	r.log.Info("audit event", fields...)
}
