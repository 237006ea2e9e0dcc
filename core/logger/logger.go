package logger

import "go.uber.org/zap"

// Logger contains methods which should be present in logger implementation.
type Logger interface {
	With(fields ...zap.Field) Logger
	ForConnector(connectorID any) Logger
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Sync() error
}
