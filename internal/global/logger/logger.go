package logger

import (
	"os"
	"strconv"

	"gitlab.com/judge-dispatch.net/internal/adapter/logging"
)

var Logger = newLogger()

func newLogger() *logging.ZapLogger {
	debug, _ := strconv.ParseBool(os.Getenv("DEBUG_MODE"))
	return logging.NewZapLogger(debug)
}

// Reload rebuilds the process logger once the env file is loaded
func Reload(debug bool) {
	Logger = logging.NewZapLogger(debug)
}

func Info(msg string, args ...interface{}) {
	Logger.Info(msg, args...)
}

func Error(msg string, args ...interface{}) {
	Logger.Error(msg, args...)
}

func Debug(msg string, args ...interface{}) {
	Logger.Debug(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	Logger.Warn(msg, args...)
}
