package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity that gets written.
type Level int8

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
)

var levelNames = map[string]Level{
	"trace": TraceLevel,
	"debug": DebugLevel,
	"info":  InfoLevel,
	"warn":  WarnLevel,
	"error": ErrorLevel,
	"fatal": FatalLevel,
	"panic": PanicLevel,
}

func (l Level) String() string {
	for name, lvl := range levelNames {
		if lvl == l {
			return name
		}
	}
	return fmt.Sprintf("level(%d)", int8(l))
}

var (
	mu      sync.RWMutex
	current = InfoLevel
	atom    = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar   = newSugar(zapcore.Lock(os.Stderr))
	logFile *os.File
)

func newSugar(ws zapcore.WriteSyncer) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, atom)
	return zap.New(core).Sugar()
}

// ParseLevel converts a level name such as "debug" into a Level.
func ParseLevel(s string) (Level, error) {
	lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return InfoLevel, fmt.Errorf("invalid log level %q (valid: trace, debug, info, warn, error, fatal, panic)", s)
	}
	return lvl, nil
}

// SetLevel changes the global log level.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	current = l
	atom.SetLevel(zapLevel(l))
}

// GetLevel returns the global log level.
func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// SetOutput mirrors log output into the given file in addition to stderr.
// An empty path restores stderr-only output.
func SetOutput(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	if strings.TrimSpace(path) == "" {
		sugar = newSugar(zapcore.Lock(os.Stderr))
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logFile = f
	sugar = newSugar(zapcore.NewMultiWriteSyncer(zapcore.Lock(os.Stderr), zapcore.AddSync(f)))
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	s := sugar
	mu.RUnlock()
	_ = s.Sync()
}

func zapLevel(l Level) zapcore.Level {
	switch l {
	case TraceLevel, DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.PanicLevel
	}
}

func enabled(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= current
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

// Trace logs very verbose diagnostics. Written at zap's debug level.
func Trace(format string, args ...any) {
	if !enabled(TraceLevel) {
		return
	}
	get().Debugf("[TRACE] "+format, args...)
}

func Debug(format string, args ...any) {
	if !enabled(DebugLevel) {
		return
	}
	get().Debugf(format, args...)
}

func Info(format string, args ...any) {
	get().Infof(format, args...)
}

func Warn(format string, args ...any) {
	get().Warnf(format, args...)
}

func Error(format string, args ...any) {
	get().Errorf(format, args...)
}

// Fatal logs and exits the process.
func Fatal(format string, args ...any) {
	get().Fatalf(format, args...)
}
