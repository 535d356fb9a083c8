package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
)

// LogHandler implements slog.Handler by sending records to the host.
type LogHandler struct {
	sink   func([]byte)
	attrs  []entities.LogAttrWire
	prefix string
	level  slog.Level
}

// LogOption configures a LogHandler.
type LogOption func(*LogHandler)

// WithLevel sets the minimum level sent to the host.
func WithLevel(level slog.Level) LogOption {
	return func(h *LogHandler) {
		h.level = level
	}
}

// WithSink replaces the host log_message call.
func WithSink(sink func([]byte)) LogOption {
	return func(h *LogHandler) {
		if sink != nil {
			h.sink = sink
		}
	}
}

// NewLogHandler creates a handler that defaults to Info level.
func NewLogHandler(opts ...LogOption) *LogHandler {
	h := &LogHandler{sink: hostLogSink, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *LogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle serialises record and sends it to the host.
func (h *LogHandler) Handle(_ context.Context, record slog.Record) error {
	msg := entities.LogMessageWire{
		Timestamp: record.Time,
		Level:     record.Level.String(),
		Message:   record.Message,
		Attrs:     append([]entities.LogAttrWire(nil), h.attrs...),
	}
	record.Attrs(func(attr slog.Attr) bool {
		msg.Attrs = append(msg.Attrs, toLogAttrWire(h.prefix, attr)...)
		return true
	})

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("guest: failed to marshal log record: %w", err)
	}
	h.sink(data)
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]entities.LogAttrWire(nil), h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, toLogAttrWire(h.prefix, a)...)
	}
	return &clone
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// toLogAttrWire flattens attr; groups expand to dotted keys.
func toLogAttrWire(prefix string, attr slog.Attr) []entities.LogAttrWire {
	attr.Value = attr.Value.Resolve()
	key := prefix + attr.Key

	if attr.Value.Kind() == slog.KindGroup {
		var out []entities.LogAttrWire
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix = key + "."
		}
		for _, a := range attr.Value.Group() {
			out = append(out, toLogAttrWire(groupPrefix, a)...)
		}
		return out
	}

	wire := entities.LogAttrWire{Key: key}
	switch attr.Value.Kind() {
	case slog.KindString:
		wire.Type, wire.Value = "string", attr.Value.String()
	case slog.KindInt64:
		wire.Type, wire.Value = "int64", strconv.FormatInt(attr.Value.Int64(), 10)
	case slog.KindUint64:
		wire.Type, wire.Value = "uint64", strconv.FormatUint(attr.Value.Uint64(), 10)
	case slog.KindBool:
		wire.Type, wire.Value = "bool", strconv.FormatBool(attr.Value.Bool())
	case slog.KindFloat64:
		wire.Type, wire.Value = "float64", strconv.FormatFloat(attr.Value.Float64(), 'g', -1, 64)
	case slog.KindTime:
		wire.Type, wire.Value = "time", attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		wire.Type, wire.Value = "duration", attr.Value.Duration().String()
	default:
		v := attr.Value.Any()
		switch x := v.(type) {
		case nil:
			wire.Type, wire.Value = "any", "<nil>"
		case error:
			wire.Type, wire.Value = "error", x.Error()
		default:
			if data, err := json.Marshal(x); err == nil {
				wire.Type, wire.Value = "json", string(data)
			} else {
				wire.Type, wire.Value = "any", fmt.Sprintf("%v", x)
			}
		}
	}
	return []entities.LogAttrWire{wire}
}
