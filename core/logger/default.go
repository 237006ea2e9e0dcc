package logger

import "go.uber.org/zap"

type Default struct {
	Logger *zap.Logger
}

// NewDefault returns a Logger with the specified format ("json" or "console").
func NewDefault(format string, debug bool) Logger {
	return &Default{Logger: NewZap(format, debug)}
}

// NewNil returns a no-op Logger.
func NewNil() Logger {
	return &Default{Logger: zap.NewNop()}
}

// NewWith wraps an existing zap logger. Used by tests with zaptest observers.
func NewWith(log *zap.Logger) Logger {
	return &Default{Logger: log}
}

func (d *Default) With(fields ...zap.Field) Logger {
	return &Default{Logger: d.Logger.With(fields...)}
}

func (d *Default) ForConnector(connectorID any) Logger {
	return d.With(zap.Any(ConnectorAttr, connectorID))
}

func (d *Default) Debug(msg string, fields ...zap.Field) {
	d.Logger.Debug(msg, fields...)
}

func (d *Default) Info(msg string, fields ...zap.Field) {
	d.Logger.Info(msg, fields...)
}

func (d *Default) Warn(msg string, fields ...zap.Field) {
	d.Logger.Warn(msg, fields...)
}

func (d *Default) Error(msg string, fields ...zap.Field) {
	d.Logger.Error(msg, fields...)
}

func (d *Default) Sync() error {
	return d.Logger.Sync()
}
