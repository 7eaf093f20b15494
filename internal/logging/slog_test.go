package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "drain skipped", "pending", 0)
	log.Info(ctx, "sync cycle finished", "pushed", 2)
	log.Warn(ctx, "pull conflict", "id", "t1")
	log.Error(ctx, "db open failed", "path", "daykeeper.db")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "pending=0")
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, "pushed=2")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "id=t1")
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "path=daykeeper.db")
}

func TestSlogLogger_WithAddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("component", "syncer").Info(context.Background(), "started", "interval", "30s")

	out := buf.String()
	assert.Contains(t, out, "component=syncer")
	assert.Contains(t, out, "interval=30s")
	assert.Contains(t, out, "msg=started")
}
