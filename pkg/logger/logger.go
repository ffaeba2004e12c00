// Package logger is a thin key-value facade over a global zap logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var log = zap.NewNop().Sugar()

// Init configures the global logger. "development" gets a colored console
// encoder at debug level, everything else JSON at info level.
func Init(environment string) {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewExample()
	}

	zap.ReplaceGlobals(l)
	log = l.Sugar()
}

func Debug(msg string, args ...any) { log.Debugw(msg, normalize(args)...) }

func Info(msg string, args ...any) { log.Infow(msg, normalize(args)...) }

func Warn(msg string, args ...any) { log.Warnw(msg, normalize(args)...) }

func Error(msg string, args ...any) { log.Errorw(msg, normalize(args)...) }

func Fatal(msg string, args ...any) {
	log.Errorw(msg, normalize(args)...)
	_ = log.Sync()
	os.Exit(1)
}

// Sync flushes buffered entries.
func Sync() error { return log.Sync() }

// normalize turns a bare error in key position into an "error" pair, so both
// logger.Error("msg", err) and logger.Error("msg", "error", err) work.
func normalize(args []any) []any {
	out := make([]any, 0, len(args)+2)
	for i := 0; i < len(args); i++ {
		if err, ok := args[i].(error); ok {
			out = append(out, "error", err)
			continue
		}
		out = append(out, args[i])
		if i+1 < len(args) {
			out = append(out, args[i+1])
			i++
		}
	}
	return out
}
