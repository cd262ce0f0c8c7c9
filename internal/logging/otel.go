package logging

import (
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log"
	"go.uber.org/zap/zapcore"

	"github.com/vezlo/ai-validator/internal/llm"
)

const otelScope = "github.com/vezlo/ai-validator"

// newCore builds the stream core and, when otelProvider is set, tees it with
// an OTLP log core. Both pass through the same redaction rules and sampling.
func newCore(cfg *Config, out zapcore.WriteSyncer, otelProvider log.LoggerProvider) (zapcore.Core, error) {
	encoder, err := NewRedactingEncoder(newEncoder(cfg.Format), cfg.Redaction)
	if err != nil {
		return nil, fmt.Errorf("failed to create redacting encoder: %w", err)
	}

	core := zapcore.NewCore(encoder, out, cfg.Level)
	if otelProvider != nil {
		otelCore := otelzap.NewCore(otelScope, otelzap.WithLoggerProvider(otelProvider))
		core = zapcore.NewTee(core, &redactingCore{Core: otelCore, enc: encoder, level: cfg.Level})
	}

	return newSampledCore(core, cfg.Sampling), nil
}

// redactingCore applies the encoder's masking to a core that never encodes
// through it, such as the OTLP bridge.
type redactingCore struct {
	zapcore.Core
	enc   *RedactingEncoder
	level zapcore.LevelEnabler
}

func (c *redactingCore) Enabled(lvl zapcore.Level) bool {
	return c.level.Enabled(lvl) && c.Core.Enabled(lvl)
}

func (c *redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactingCore{Core: c.Core.With(c.enc.fields(fields)), enc: c.enc, level: c.level}
}

func (c *redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if c.enc.enabled {
		ent.Message = llm.ScrubSecrets(ent.Message)
	}
	return c.Core.Write(ent, c.enc.fields(fields))
}
