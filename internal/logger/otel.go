package logger

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// OTelHandler bridges slog records to the global OpenTelemetry
// LoggerProvider. Attributes added through WithAttrs and WithGroup are kept.
type OTelHandler struct {
	logger log.Logger
	opts   slog.HandlerOptions
	attrs  []log.KeyValue
	groups []string
}

func NewOTelHandler(scope string, opts *slog.HandlerOptions) *OTelHandler {
	h := &OTelHandler{
		logger: global.GetLoggerProvider().Logger(scope),
	}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *OTelHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

func (h *OTelHandler) Handle(ctx context.Context, record slog.Record) error {
	var rec log.Record
	rec.SetTimestamp(record.Time)
	rec.SetBody(log.StringValue(record.Message))
	rec.SetSeverity(convertSlogLevel(record.Level))
	rec.SetSeverityText(record.Level.String())

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		rec.AddAttributes(
			log.String("trace_id", sc.TraceID().String()),
			log.String("span_id", sc.SpanID().String()),
		)
	}

	if h.opts.AddSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		if f, _ := frames.Next(); f.File != "" {
			rec.AddAttributes(
				log.String("code.filepath", f.File),
				log.String("code.function", f.Function),
				log.Int("code.lineno", f.Line),
			)
		}
	}

	rec.AddAttributes(h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		rec.AddAttributes(convertSlogAttr(h.qualify(attr.Key), attr.Value))
		return true
	})

	h.logger.Emit(ctx, rec)
	return nil
}

func (h *OTelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, convertSlogAttr(h.qualify(attr.Key), attr.Value))
	}
	return clone
}

func (h *OTelHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *OTelHandler) clone() *OTelHandler {
	return &OTelHandler{
		logger: h.logger,
		opts:   h.opts,
		attrs:  append([]log.KeyValue(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

func (h *OTelHandler) qualify(key string) string {
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	return key
}

func convertSlogLevel(level slog.Level) log.Severity {
	switch {
	case level >= slog.LevelError:
		return log.SeverityError
	case level >= slog.LevelWarn:
		return log.SeverityWarn
	case level >= slog.LevelInfo:
		return log.SeverityInfo
	default:
		return log.SeverityDebug
	}
}

func convertSlogAttr(key string, v slog.Value) log.KeyValue {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return log.String(key, v.String())
	case slog.KindInt64:
		return log.Int64(key, v.Int64())
	case slog.KindUint64:
		return log.Int64(key, int64(v.Uint64()))
	case slog.KindFloat64:
		return log.Float64(key, v.Float64())
	case slog.KindBool:
		return log.Bool(key, v.Bool())
	case slog.KindDuration:
		return log.Int64(key, v.Duration().Nanoseconds())
	case slog.KindTime:
		return log.String(key, v.Time().Format(time.RFC3339Nano))
	default:
		return log.String(key, v.String())
	}
}
