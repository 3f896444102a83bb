package synthesis

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Severity of a synthesis message.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

// level maps a severity to the process log priority. zap has no level between
// error and panic, so critical messages log at error with the severity field.
func (s Severity) level() zapcore.Level {
	switch s {
	case SeverityInfo:
		return zapcore.InfoLevel
	case SeverityWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// Location attributes a message to the datasource and entity type being synthesized.
type Location struct {
	DataSource string
	Entity     EntityType
}

// Path returns the location as [datasource-id, entity-type], omitting empty parts.
func (l Location) Path() []string {
	path := make([]string, 0, 2)
	if l.DataSource != "" {
		path = append(path, l.DataSource)
	}
	if l.Entity != "" {
		path = append(path, string(l.Entity))
	}
	return path
}

// Message is a diagnostic attached to a response.
type Message struct {
	Text  string   `json:"msg"`
	Level Severity `json:"level"`
	Where []string `json:"where"`
}

// MessageSink collects the messages of one call. It is owned by a single
// Response and is not shared between calls; only the logger is.
type MessageSink struct {
	logger   *zap.Logger
	messages []Message
}

// NewMessageSink returns an empty sink mirroring messages to logger.
func NewMessageSink(logger *zap.Logger) *MessageSink {
	if logger == nil {
		logger = zap.L()
	}
	return &MessageSink{logger: logger, messages: make([]Message, 0)}
}

// Log writes to the process logger without recording a message.
func (s *MessageSink) Log(loc Location, level zapcore.Level, text string) {
	if ce := s.logger.Check(level, text); ce != nil {
		ce.Write(zap.Strings("where", loc.Path()))
	}
}

// Record logs text and appends it to the response as a message tagged with loc.
func (s *MessageSink) Record(loc Location, sev Severity, text string) {
	if ce := s.logger.Check(sev.level(), text); ce != nil {
		ce.Write(zap.String("severity", string(sev)), zap.Strings("where", loc.Path()))
	}
	s.messages = append(s.messages, Message{Text: text, Level: sev, Where: loc.Path()})
}

// Info records an INFO message.
func (s *MessageSink) Info(loc Location, format string, args ...any) {
	s.Record(loc, SeverityInfo, fmt.Sprintf(format, args...))
}

// Warn records a WARN message.
func (s *MessageSink) Warn(loc Location, format string, args ...any) {
	s.Record(loc, SeverityWarn, fmt.Sprintf(format, args...))
}

// Error records an ERROR message.
func (s *MessageSink) Error(loc Location, format string, args ...any) {
	s.Record(loc, SeverityError, fmt.Sprintf(format, args...))
}

// Critical records a CRITICAL message.
func (s *MessageSink) Critical(loc Location, format string, args ...any) {
	s.Record(loc, SeverityCritical, fmt.Sprintf(format, args...))
}

// Messages returns a copy of the recorded messages in emission order.
func (s *MessageSink) Messages() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
