package logger

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

var (
	log  *zap.Logger
	once sync.Once

	serviceName = "signal_engine"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init replaces the default logger. Tests may skip it: the first log call
// falls back to a production logger.
func Init(l *zap.Logger) {
	log = l
}

func get() *zap.Logger {
	once.Do(func() {
		if log == nil {
			log, _ = zap.NewProduction()
		}
	})
	return log
}

func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	get().With(
		zap.String("service", serviceName),
	).Info(msg)
}

func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	get().With(
		zap.String("service", serviceName),
	).Warn(msg)
}

func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	get().With(
		zap.String("service", serviceName),
	).Error(msg)
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	get().With(
		zap.String("service", serviceName),
	).Fatal(msg)
}
