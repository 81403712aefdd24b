package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levels = [...]struct {
	name string
	slog slog.Level
}{
	DebugLevel: {"DEBUG", slog.LevelDebug},
	InfoLevel:  {"INFO", slog.LevelInfo},
	WarnLevel:  {"WARN", slog.LevelWarn},
	ErrorLevel: {"ERROR", slog.LevelError},
}

func (l LogLevel) known() bool { return l >= DebugLevel && l <= ErrorLevel }

func (l LogLevel) String() string {
	if !l.known() {
		return InfoLevel.String()
	}
	return levels[l].name
}

func (l LogLevel) slogLevel() slog.Level {
	if !l.known() {
		return slog.LevelInfo
	}
	return levels[l].slog
}

// ParseLogLevel maps a configured level name onto a LogLevel. Unknown names
// fall back to InfoLevel.
func ParseLogLevel(name string) LogLevel {
	name = strings.ToUpper(name)
	if name == "WARNING" {
		return WarnLevel
	}
	for l, lv := range levels {
		if lv.name == name {
			return LogLevel(l)
		}
	}
	return InfoLevel
}

// Logger writes one JSON object per line. Loggers derived with the With
// methods share the parent's handler.
type Logger struct {
	out *slog.Logger
}

// NewLogger creates a JSON logger writing entries at level or above to output
// (stdout when nil)
func NewLogger(level LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	h := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level.slogLevel()})
	return &Logger{out: slog.New(h)}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{out: l.out.With(args...)}
}

// WithField returns a logger that adds key to every entry
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(key, value)
}

// WithFields returns a logger that adds every field, in key order
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	args := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return l.with(args...)
}

// WithError records err under "error". A nil error returns l itself.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.with("error", err.Error())
}

// WithCompile attaches the outcome of one compilation as a "compile" group
func (l *Logger) WithCompile(c CompileFields) *Logger {
	return l.with("compile", c)
}

func (l *Logger) Debug(message string) { l.out.Debug(message) }
func (l *Logger) Info(message string)  { l.out.Info(message) }
func (l *Logger) Warn(message string)  { l.out.Warn(message) }
func (l *Logger) Error(message string) { l.out.Error(message) }

// Warnf logs a formatted warning
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.out.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted error
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.out.Error(fmt.Sprintf(format, args...))
}

// CompileFields describes one compilation in log entries. Kind is the error
// kind of a failed compilation and is empty on success.
type CompileFields struct {
	Kind       string
	Bytes      int
	Requests   int
	Schemas    int
	Variants   int
	LargestSet int
	Duration   time.Duration
}

// LogValue renders the fields as a group, leaving out counts a failed
// compilation never reached
func (c CompileFields) LogValue() slog.Value {
	attrs := []slog.Attr{slog.Int("bytes", c.Bytes)}
	if c.Kind != "" {
		attrs = append(attrs, slog.String("error_kind", c.Kind))
	} else {
		attrs = append(attrs,
			slog.Int("requests", c.Requests),
			slog.Int("schemas", c.Schemas),
			slog.Int("variants", c.Variants),
			slog.Int("largest_set", c.LargestSet),
		)
	}
	attrs = append(attrs, slog.Int64("duration_ms", c.Duration.Milliseconds()))
	return slog.GroupValue(attrs...)
}

// logScope is what a request has learned about itself so far
type logScope struct {
	logger        *Logger
	requestID     string
	descriptionID string
	digest        string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) logScope {
	s, _ := ctx.Value(scopeKey{}).(logScope)
	return s
}

func withScope(ctx context.Context, update func(*logScope)) context.Context {
	s := scopeOf(ctx)
	update(&s)
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithLogger stores the logger used by FromContext
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return withScope(ctx, func(s *logScope) { s.logger = logger })
}

// WithRequestID records the id of the HTTP request being served
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withScope(ctx, func(s *logScope) { s.requestID = requestID })
}

// GetRequestID returns the request id of ctx, or ""
func GetRequestID(ctx context.Context) string {
	return scopeOf(ctx).requestID
}

// WithDescriptionID records the id of the stored description being served
func WithDescriptionID(ctx context.Context, id string) context.Context {
	return withScope(ctx, func(s *logScope) { s.descriptionID = id })
}

// GetDescriptionID returns the description id of ctx, or ""
func GetDescriptionID(ctx context.Context) string {
	return scopeOf(ctx).descriptionID
}

// WithDigest records the content digest of the description being compiled
func WithDigest(ctx context.Context, digest string) context.Context {
	return withScope(ctx, func(s *logScope) { s.digest = digest })
}

// GetDigest returns the description digest of ctx, or ""
func GetDigest(ctx context.Context) string {
	return scopeOf(ctx).digest
}

// GetLogger returns the logger stored in ctx, or an info level logger on
// stdout
func GetLogger(ctx context.Context) *Logger {
	if l := scopeOf(ctx).logger; l != nil {
		return l
	}
	return NewLogger(InfoLevel, os.Stdout)
}

// FromContext returns the logger of ctx with the request id, description id
// and digest recorded so far
func FromContext(ctx context.Context) *Logger {
	s := scopeOf(ctx)
	logger := GetLogger(ctx)

	var args []any
	if s.requestID != "" {
		args = append(args, "request_id", s.requestID)
	}
	if s.descriptionID != "" {
		args = append(args, "description_id", s.descriptionID)
	}
	if s.digest != "" {
		args = append(args, "digest", s.digest)
	}
	if len(args) == 0 {
		return logger
	}
	return logger.with(args...)
}
