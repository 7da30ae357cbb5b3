package telemetry

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Bridge tees base into OpenTelemetry logs for records at or above minLevel.
// base comes back unchanged when log export is off.
func (t *Telemetry) Bridge(base *zap.Logger, minLevel zapcore.Level) *zap.Logger {
	if t == nil || t.logs == nil {
		return base
	}

	exported := &minLevelCore{
		Core:     otelzap.NewCore(t.cfg.ServiceName, otelzap.WithLoggerProvider(t.logs)),
		minLevel: minLevel,
	}
	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, exported)
	}))
}

// minLevelCore gives the otelzap core a level floor.
type minLevelCore struct {
	zapcore.Core
	minLevel zapcore.Level
}

func (c *minLevelCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.minLevel && c.Core.Enabled(lvl)
}

func (c *minLevelCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(entry.Level) {
		return ce
	}
	return c.Core.Check(entry, ce)
}

func (c *minLevelCore) With(fields []zapcore.Field) zapcore.Core {
	return &minLevelCore{Core: c.Core.With(fields), minLevel: c.minLevel}
}
