// Package logging provides structured logging for the engine using slog, with
// file output rotated via lumberjack, in the same shape the host
// application's other components use. Init also builds a human-readable
// stdout text logger, but no function in this package writes to it.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger *slog.Logger
	humanLogger      *slog.Logger
	loggerMu         sync.RWMutex
)

var currentLevel = new(slog.LevelVar)
var initOnce sync.Once

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			if name, ok := levelNames[level]; ok {
				a.Value = slog.StringValue(name)
			}
		}
	}
	if a.Value.Kind() == slog.KindFloat64 {
		a.Value = slog.Float64Value(math.Trunc(a.Value.Float64()*1e4) / 1e4)
	}
	return a
}

// Init sets up the global structured (JSON, file+rotation) logger, installs it
// as slog's default, and builds the human-readable (text, stdout) logger.
// logDir defaults to "logs" when empty.
func Init(logDir string) {
	initOnce.Do(func() {
		currentLevel.Set(slog.LevelInfo)
		if logDir == "" {
			logDir = "logs"
		}
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "logging: failed to create log dir %s: %v\n", logDir, err)
		}

		lj := &lumberjack.Logger{
			Filename:   logDir + "/engine.log",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		}

		structuredHandler := slog.NewJSONHandler(lj, &slog.HandlerOptions{
			Level:       currentLevel,
			ReplaceAttr: replaceAttr,
		})
		humanHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       currentLevel,
			ReplaceAttr: replaceAttr,
		})

		loggerMu.Lock()
		structuredLogger = slog.New(structuredHandler)
		humanLogger = slog.New(humanHandler)
		loggerMu.Unlock()

		slog.SetDefault(structuredLogger)
	})
}

// SetLevel changes the level shared by both loggers.
func SetLevel(level slog.Level) {
	currentLevel.Set(level)
}

// ForComponent returns a logger tagged with "component", falling back to
// slog.Default() if Init has not run yet (tests, one-off CLI commands).
func ForComponent(name string) *slog.Logger {
	loggerMu.RLock()
	l := structuredLogger
	loggerMu.RUnlock()
	if l == nil {
		return slog.Default().With("component", name)
	}
	return l.With("component", name)
}

// Fatal logs at the custom fatal level and exits the process.
func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}

// Trace logs at the custom trace level.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
