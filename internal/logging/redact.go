package logging

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"

	"github.com/vezlo/ai-validator/internal/config"
	"github.com/vezlo/ai-validator/internal/llm"
)

const (
	maxPatternLen = 200

	redactedKey     = "[REDACTED]"
	redactedPattern = "[REDACTED:pattern]"
)

// Secret logs a configured provider key as its length only.
func Secret(key string, val config.Secret) zap.Field {
	return RedactedString(key, val.Value())
}

// RedactedString logs val as "[REDACTED:<len>]".
func RedactedString(key, val string) zap.Field {
	return zap.String(key, fmt.Sprintf("[REDACTED:%d]", len(val)))
}

func compilePattern(p string) (*regexp.Regexp, error) {
	if len(p) > maxPatternLen {
		return nil, fmt.Errorf("redaction pattern too long (max %d chars): %q", maxPatternLen, p)
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
	}
	return re, nil
}

// RedactingEncoder masks secrets before they reach the log sink.
//
// A field whose key is on the deny list is replaced whole. A string value
// matching a configured pattern is replaced whole. Anything else has
// provider keys, bearer tokens and the like scrubbed in place, the same
// scrubbing applied to prompts before they leave the process. The entry
// message is scrubbed too, so provider errors that echo a key stay clean.
type RedactingEncoder struct {
	zapcore.Encoder
	enabled  bool
	keys     map[string]struct{}
	patterns []*regexp.Regexp
}

// NewRedactingEncoder wraps base with the rules in cfg.
func NewRedactingEncoder(base zapcore.Encoder, cfg RedactionConfig) (*RedactingEncoder, error) {
	e := &RedactingEncoder{Encoder: base, enabled: cfg.Enabled}
	if !cfg.Enabled {
		return e, nil
	}

	e.keys = make(map[string]struct{}, len(cfg.Fields))
	for _, f := range cfg.Fields {
		e.keys[strings.ToLower(f)] = struct{}{}
	}
	for _, p := range cfg.Patterns {
		re, err := compilePattern(p)
		if err != nil {
			return nil, err
		}
		e.patterns = append(e.patterns, re)
	}
	return e, nil
}

func (e *RedactingEncoder) denied(key string) bool {
	if !e.enabled {
		return false
	}
	_, ok := e.keys[strings.ToLower(key)]
	return ok
}

func (e *RedactingEncoder) scrub(key, val string) string {
	if !e.enabled {
		return val
	}
	if e.denied(key) {
		return redactedKey
	}
	for _, re := range e.patterns {
		if re.MatchString(val) {
			return redactedPattern
		}
	}
	return llm.ScrubSecrets(val)
}

// field returns f with its value masked where the rules require it.
func (e *RedactingEncoder) field(f zapcore.Field) zapcore.Field {
	if !e.enabled {
		return f
	}
	switch f.Type {
	case zapcore.StringType:
		f.String = e.scrub(f.Key, f.String)
		return f
	case zapcore.ErrorType:
		if err, ok := f.Interface.(error); ok {
			return zap.String(f.Key, e.scrub(f.Key, err.Error()))
		}
	case zapcore.StringerType:
		if s, ok := f.Interface.(fmt.Stringer); ok {
			return zap.String(f.Key, e.scrub(f.Key, s.String()))
		}
	case zapcore.SkipType:
		return f
	}
	if e.denied(f.Key) {
		return zap.String(f.Key, redactedKey)
	}
	return f
}

// EncodeEntry masks per-call fields; the base encoder would otherwise write
// them without passing through the Add methods below.
func (e *RedactingEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if e.enabled {
		ent.Message = llm.ScrubSecrets(ent.Message)
	}
	return e.Encoder.EncodeEntry(ent, e.fields(fields))
}

func (e *RedactingEncoder) fields(fields []zapcore.Field) []zapcore.Field {
	if !e.enabled {
		return fields
	}
	masked := make([]zapcore.Field, len(fields))
	for i, f := range fields {
		masked[i] = e.field(f)
	}
	return masked
}

// The Add methods cover fields attached through Logger.With.

func (e *RedactingEncoder) AddString(key, val string) {
	e.Encoder.AddString(key, e.scrub(key, val))
}

func (e *RedactingEncoder) AddByteString(key string, val []byte) {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedKey)
		return
	}
	e.Encoder.AddByteString(key, val)
}

func (e *RedactingEncoder) AddBinary(key string, val []byte) {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedKey)
		return
	}
	e.Encoder.AddBinary(key, val)
}

func (e *RedactingEncoder) AddReflected(key string, val interface{}) error {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedKey)
		return nil
	}
	return e.Encoder.AddReflected(key, val)
}

func (e *RedactingEncoder) AddArray(key string, arr zapcore.ArrayMarshaler) error {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedKey)
		return nil
	}
	return e.Encoder.AddArray(key, arr)
}

func (e *RedactingEncoder) AddObject(key string, obj zapcore.ObjectMarshaler) error {
	if e.denied(key) {
		e.Encoder.AddString(key, redactedKey)
		return nil
	}
	return e.Encoder.AddObject(key, obj)
}

func (e *RedactingEncoder) Clone() zapcore.Encoder {
	clone := *e
	clone.Encoder = e.Encoder.Clone()
	return &clone
}
