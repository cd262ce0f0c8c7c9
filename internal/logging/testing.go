package logging

import (
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vezlo/ai-validator/internal/llm"
)

// TestLogger records every entry, down to Trace, for assertions.
type TestLogger struct {
	*Logger
	logs *observer.ObservedLogs
}

// NewTestLogger creates a recording logger.
func NewTestLogger() *TestLogger {
	core, logs := observer.New(TraceLevel)
	return &TestLogger{
		Logger: &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		logs:   logs,
	}
}

// All returns the recorded entries.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.logs.All()
}

func (t *TestLogger) matching(level zapcore.Level, msgContains string) []observer.LoggedEntry {
	return t.logs.Filter(func(e observer.LoggedEntry) bool {
		return e.Level == level && strings.Contains(e.Message, msgContains)
	}).All()
}

// AssertLogged fails tb unless an entry at level contains msgContains.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if len(t.matching(level, msgContains)) == 0 {
		tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, t.logs.All())
	}
}

// AssertNotLogged fails tb if an entry at level contains msgContains.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	if got := t.matching(level, msgContains); len(got) > 0 {
		tb.Errorf("unexpected log at %v containing %q: %+v", level, msgContains, got)
	}
}

// AssertField fails tb unless an entry with message msg has key set to
// expected. Correlation fields from the context count.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected interface{}) {
	tb.Helper()
	for _, entry := range t.logs.FilterMessage(msg).All() {
		if got, ok := entry.ContextMap()[key]; ok && reflect.DeepEqual(got, expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found in message %q", key, expected, msg)
}

// AssertTraceCorrelation fails tb unless an entry with message msg carries
// a trace_id.
func (t *TestLogger) AssertTraceCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	for _, entry := range t.logs.FilterMessage(msg).All() {
		if _, ok := entry.ContextMap()["trace_id"]; ok {
			return
		}
	}
	tb.Errorf("message %q missing trace_id", msg)
}

// AssertNoSecrets fails tb if a message or string field holds a credential
// shape the prompt scrubber would catch, or if a deny-listed key carries an
// unredacted value.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()
	denied := map[string]bool{}
	for _, k := range NewDefaultConfig().Redaction.Fields {
		denied[k] = true
	}

	for _, entry := range t.logs.All() {
		if llm.ScrubSecrets(entry.Message) != entry.Message {
			tb.Errorf("secret in message: %q", entry.Message)
		}
		for key, val := range entry.ContextMap() {
			s, ok := val.(string)
			if !ok || s == "" {
				continue
			}
			if denied[strings.ToLower(key)] && !strings.HasPrefix(s, "[REDACTED") {
				tb.Errorf("sensitive field %q not redacted: %q", key, s)
			}
			if llm.ScrubSecrets(s) != s {
				tb.Errorf("secret in field %q: %q", key, s)
			}
		}
	}
}
