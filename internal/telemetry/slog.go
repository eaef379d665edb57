package telemetry

import (
	"context"
	"log/slog"

	otellog "go.opentelemetry.io/otel/log"
)

// ScopeName identifies stargazer's log records in the collector
const ScopeName = "stargazer"

// LogHandler writes every record to a local slog handler and also emits
// records at Info and above as OpenTelemetry log records.
type LogHandler struct {
	next   slog.Handler
	logger otellog.Logger
	attrs  []otellog.KeyValue
	group  string
}

// NewLogHandler tees next into provider
func NewLogHandler(next slog.Handler, provider otellog.LoggerProvider) *LogHandler {
	return &LogHandler{next: next, logger: provider.Logger(ScopeName)}
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo || h.next.Enabled(ctx, level)
}

func (h *LogHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelInfo {
		var rec otellog.Record
		rec.SetTimestamp(r.Time)
		rec.SetBody(otellog.StringValue(r.Message))
		rec.SetSeverity(severity(r.Level))
		rec.SetSeverityText(r.Level.String())
		rec.AddAttributes(h.attrs...)
		r.Attrs(func(a slog.Attr) bool {
			rec.AddAttributes(h.convert(a))
			return true
		})
		h.logger.Emit(ctx, rec)
	}

	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append([]otellog.KeyValue(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.convert(a))
	}
	return &clone
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.group = h.key(name)
	return &clone
}

func (h *LogHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func (h *LogHandler) convert(a slog.Attr) otellog.KeyValue {
	k := h.key(a.Key)
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindBool:
		return otellog.Bool(k, v.Bool())
	case slog.KindInt64:
		return otellog.Int64(k, v.Int64())
	case slog.KindUint64:
		return otellog.Int64(k, int64(v.Uint64()))
	case slog.KindFloat64:
		return otellog.Float64(k, v.Float64())
	default:
		return otellog.String(k, v.String())
	}
}

func severity(l slog.Level) otellog.Severity {
	switch {
	case l >= slog.LevelError:
		return otellog.SeverityError
	case l >= slog.LevelWarn:
		return otellog.SeverityWarn
	case l >= slog.LevelInfo:
		return otellog.SeverityInfo
	default:
		return otellog.SeverityDebug
	}
}
