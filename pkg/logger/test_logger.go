package logger

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger is a logger implementation for testing that captures all log messages.
// Child loggers created with WithField/WithFields/WithError share the same capture buffer.
type TestLogger struct {
	store  *testStore
	fields map[string]interface{}
	err    error
}

type testStore struct {
	mu       sync.Mutex
	messages []LogMessage
	buffer   bytes.Buffer
	nop      zerolog.Logger
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	return &TestLogger{
		store: &testStore{nop: zerolog.Nop()},
	}
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

// WithField adds a field to the logger context
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields adds multiple fields to the logger context
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{store: l.store, fields: merged, err: l.err}
}

// WithError adds an error to the logger context
func (l *TestLogger) WithError(err error) Logger {
	return &TestLogger{store: l.store, fields: l.fields, err: err}
}

// GetZerolog returns a no-op zerolog instance
func (l *TestLogger) GetZerolog() *zerolog.Logger {
	return &l.store.nop
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	all := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}

	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  all,
		Error:   l.err,
	})

	fmt.Fprintf(&s.buffer, "[%s] %s", level, msg)
	if len(all) > 0 {
		fmt.Fprintf(&s.buffer, " fields=%v", all)
	}
	if l.err != nil {
		fmt.Fprintf(&s.buffer, " error=%v", l.err)
	}
	s.buffer.WriteByte('\n')
}

// GetMessages returns a copy of all captured log messages
func (l *TestLogger) GetMessages() []LogMessage {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	messages := make([]LogMessage, len(s.messages))
	copy(messages, s.messages)
	return messages
}

// GetMessagesByLevel returns all messages of a specific level
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasMessageContaining checks if any message contains substr
func (l *TestLogger) HasMessageContaining(substr string) bool {
	for _, msg := range l.GetMessages() {
		if strings.Contains(msg.Message, substr) {
			return true
		}
	}
	return false
}

// HasError checks if an error was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear clears all captured messages
func (l *TestLogger) Clear() {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = s.messages[:0]
	s.buffer.Reset()
}

// String returns all log messages as a string
func (l *TestLogger) String() string {
	s := l.store
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buffer.String()
}
