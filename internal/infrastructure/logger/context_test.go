package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestWithContext(t *testing.T) {
	t.Run("round trips logger through context", func(t *testing.T) {
		log := zap.NewNop()
		ctx := WithContext(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("returns no-op logger when absent", func(t *testing.T) {
		log := FromContext(context.Background())
		require.NotNil(t, log)
	})
}

func TestWithRequestID(t *testing.T) {
	log, logs := newObservedLogger()

	ctx, enriched := WithRequestID(context.Background(), log, "req-123")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Same(t, enriched, FromContext(ctx))

	enriched.Info("hello")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "req-123", logs.All()[0].ContextMap()["request_id"])
}

func TestWithOrganizationID(t *testing.T) {
	log, logs := newObservedLogger()

	ctx, enriched := WithOrganizationID(context.Background(), log, "org-42")

	assert.Equal(t, "org-42", GetOrganizationID(ctx))

	enriched.Info("scoped")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "org-42", logs.All()[0].ContextMap()["organization_id"])
}

func TestGetRequestID_Empty(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
	assert.Empty(t, GetOrganizationID(context.Background()))
}

func TestWithTraceContext_NoSpan(t *testing.T) {
	log := zap.NewNop()
	// Without an active span the logger passes through unchanged
	assert.Same(t, log, WithTraceContext(context.Background(), log))
}

func TestContextLogger(t *testing.T) {
	t.Run("logs with context fields", func(t *testing.T) {
		log, logs := newObservedLogger()
		ctx, _ := WithRequestID(context.Background(), log, "req-9")
		ctx, _ = WithOrganizationID(ctx, FromContext(ctx), "org-7")

		L(ctx).Info("processing event")

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "processing event", entry.Message)
		assert.Equal(t, "req-9", entry.ContextMap()["request_id"])
		assert.Equal(t, "org-7", entry.ContextMap()["organization_id"])
	})

	t.Run("With adds fields to child logger", func(t *testing.T) {
		log, logs := newObservedLogger()
		ctx := WithContext(context.Background(), log)

		L(ctx).With(zap.String("journal_code", "JE-2026-000001")).Info("posted")

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "JE-2026-000001", logs.All()[0].ContextMap()["journal_code"])
	})

	t.Run("no logger in context does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			L(context.Background()).Info("quiet")
		})
	})

	t.Run("Zap returns usable logger", func(t *testing.T) {
		log, logs := newObservedLogger()
		ctx := WithContext(context.Background(), log)

		L(ctx).Zap().Warn("direct")
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "direct", logs.All()[0].Message)
	})
}
