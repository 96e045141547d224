package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogRecorder_EmitsStructuredEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewLogRecorder(zap.New(core))

	r.Record(context.Background(), Entry{
		Action:     "rename",
		Resource:   "brand",
		ResourceID: "1b8f64f1-23a6-4f4e-9cbe-2f7dce9f31a4",
		Actor:      9,
		Before:     "Fanta",
		After:      "Fanta Zero",
	})

	entries := logs.FilterMessage("audit event").All()
	require.Len(t, entries, 1)
	require.Equal(t, "audit", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	require.Equal(t, "rename", fields["action"])
	require.Equal(t, "brand", fields["resource"])
	require.Equal(t, "1b8f64f1-23a6-4f4e-9cbe-2f7dce9f31a4", fields["resource_id"])
	require.Equal(t, uint64(9), fields["actor"])
	require.Equal(t, "Fanta", fields["before"])
	require.Equal(t, "Fanta Zero", fields["after"])
}

func TestLogRecorder_OmitsEmptyOptionalFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := NewLogRecorder(zap.New(core))

	r.Record(context.Background(), Entry{Action: "delete", Resource: "variant",
		ResourceID: "0a0ff43e-9ff2-41dc-9c3f-0a4f36f164b0", Actor: 3})

	require.Len(t, logs.All(), 1)
	fields := logs.All()[0].ContextMap()
	require.NotContains(t, fields, "before")
	require.NotContains(t, fields, "after")
	require.NotContains(t, fields, "metadata")
}
