package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level LogLevel) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg := DefaultConfig("cutplan-test")
	cfg.Level = level
	cfg.Output = buf
	return New(cfg), buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLogger_BaseAttributes(t *testing.T) {
	logger, buf := newBufferLogger(t, LevelInfo)

	logger.Info("hello")

	entry := decodeLine(t, buf)
	assert.Equal(t, "cutplan-test", entry["service"])
	assert.Equal(t, "hello", entry["msg"])
	assert.Contains(t, entry, "time")
}

func TestLogger_WithErrorAndComponent(t *testing.T) {
	logger, buf := newBufferLogger(t, LevelInfo)

	logger.WithComponent("allocation").WithError(errors.New("boom")).Error("failed")

	entry := decodeLine(t, buf)
	assert.Equal(t, "allocation", entry["component"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_WithErrorNil(t *testing.T) {
	logger, _ := newBufferLogger(t, LevelInfo)
	assert.Same(t, logger, logger.WithError(nil))
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, LevelWarn)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestLogger_LogBusinessEventCarriesContext(t *testing.T) {
	logger, buf := newBufferLogger(t, LevelInfo)
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithOperator(ctx, "alex")

	logger.LogBusinessEvent(ctx, BusinessEvent{
		EventType:  "workorder.created",
		EntityType: "workOrder",
		EntityID:   "wo-1",
		Action:     "created",
		RelatedIDs: map[string]string{"planId": "plan-1"},
	})

	entry := decodeLine(t, buf)
	assert.Equal(t, "req-1", entry["requestId"])
	assert.Equal(t, "alex", entry["operator"])
	assert.Equal(t, "plan-1", entry["planId"])
	assert.Equal(t, "wo-1", entry["entityId"])
}

func TestOperatorFromContext(t *testing.T) {
	assert.Equal(t, "", OperatorFromContext(context.Background()))
	assert.Equal(t, "sam", OperatorFromContext(ContextWithOperator(context.Background(), "sam")))
}
