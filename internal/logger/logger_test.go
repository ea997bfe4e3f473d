package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"stabledesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log"
)

func TestNewProductionWritesJSON(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Server.Environment = "production"
	cfg.Telemetry.Enabled = false

	var buf bytes.Buffer
	l := newWithWriter(cfg, &buf)
	l.Info("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "v", entry["k"])
	assert.Equal(t, "production", entry["environment"])
}

func TestNewDevelopmentWritesText(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Server.Environment = "development"
	cfg.Telemetry.Enabled = false

	var buf bytes.Buffer
	l := newWithWriter(cfg, &buf)
	l.Debug("debugging")

	assert.Contains(t, buf.String(), "msg=debugging")
}

type countingHandler struct {
	level slog.Level
	count *int
}

func (h countingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }
func (h countingHandler) Handle(context.Context, slog.Record) error  { *h.count++; return nil }
func (h countingHandler) WithAttrs([]slog.Attr) slog.Handler          { return h }
func (h countingHandler) WithGroup(string) slog.Handler               { return h }

func TestMultiHandlerRespectsLevels(t *testing.T) {
	var debugCount, errorCount int
	h := NewMultiHandler(
		countingHandler{level: slog.LevelDebug, count: &debugCount},
		countingHandler{level: slog.LevelError, count: &errorCount},
	)
	l := slog.New(h)

	l.Info("info")
	l.Error("error")

	assert.Equal(t, 2, debugCount)
	assert.Equal(t, 1, errorCount)
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestOTelHandlerQualifiesGroups(t *testing.T) {
	h := NewOTelHandler("test", nil)
	grouped := h.WithGroup("request").WithAttrs([]slog.Attr{slog.String("id", "abc")}).(*OTelHandler)

	require.Len(t, grouped.attrs, 1)
	assert.Equal(t, "request.id", grouped.attrs[0].Key)
	assert.Empty(t, h.attrs)
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
}

func TestConvertSlogLevel(t *testing.T) {
	assert.Equal(t, log.SeverityError, convertSlogLevel(slog.LevelError))
	assert.Equal(t, log.SeverityWarn, convertSlogLevel(slog.LevelWarn))
	assert.Equal(t, log.SeverityInfo, convertSlogLevel(slog.LevelInfo))
	assert.Equal(t, log.SeverityDebug, convertSlogLevel(slog.LevelDebug))
}
