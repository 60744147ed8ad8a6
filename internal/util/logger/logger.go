package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalLogger *zap.SugaredLogger
	globalLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	once         sync.Once
	mu           sync.RWMutex
)

// Config defines logging configuration
type Config struct {
	Level    string // "debug", "info", "warn", "error"
	Encoding string // "json" or "console"
	Output   io.Writer
}

// DefaultConfig returns default logger config
func DefaultConfig() *Config {
	return &Config{
		Level:    "info",
		Encoding: "console",
	}
}

// InitLogger initializes Zap with the given config. Only the first call wins.
func InitLogger(cfg *Config) {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		globalLogger = build(cfg)
	})
}

// ReplaceGlobal swaps the global logger, e.g. once the config file has been read.
func ReplaceGlobal(cfg *Config) {
	once.Do(func() {})
	mu.Lock()
	defer mu.Unlock()
	globalLogger = build(cfg)
}

// SetLevel updates the logger level without rebuilding the core.
func SetLevel(level string) {
	globalLevel.SetLevel(parseLevel(level))
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func build(cfg *Config) *zap.SugaredLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	globalLevel.SetLevel(parseLevel(cfg.Level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.LevelKey = "level"
	encoderCfg.CallerKey = "caller"
	encoderCfg.MessageKey = "msg"
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if cfg.Encoding == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	var out io.Writer = os.Stdout
	if cfg.Output != nil {
		out = cfg.Output
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), globalLevel)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()
}

// GetLogger returns the global logger instance
func GetLogger() *zap.SugaredLogger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Sync flushes any buffered log entries
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if globalLogger != nil {
		_ = globalLogger.Sync()
	}
}

func ensureInitialized() {
	InitLogger(DefaultConfig())
}

func sugared() *zap.SugaredLogger {
	ensureInitialized()
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Debug logs debug level messages
func Debug(msg string, args ...interface{}) { sugared().Debugf(msg, args...) }

// Debugf logs debug level messages with formatting
func Debugf(msg string, args ...interface{}) { sugared().Debugf(msg, args...) }

// Info logs info level messages
func Info(msg string, args ...interface{}) { sugared().Infof(msg, args...) }

// Infof logs info level messages with formatting
func Infof(msg string, args ...interface{}) { sugared().Infof(msg, args...) }

// Warn logs warning level messages
func Warn(msg string, args ...interface{}) { sugared().Warnf(msg, args...) }

// Warnf logs warning level messages with formatting
func Warnf(msg string, args ...interface{}) { sugared().Warnf(msg, args...) }

// Error logs error level messages
func Error(msg string, args ...interface{}) { sugared().Errorf(msg, args...) }

// Errorf logs error level messages with formatting
func Errorf(msg string, args ...interface{}) { sugared().Errorf(msg, args...) }

// Fatal logs fatal level messages and exits
func Fatal(msg string, args ...interface{}) { sugared().Fatalf(msg, args...) }

// Fatalf logs fatal level messages with formatting and exits
func Fatalf(msg string, args ...interface{}) { sugared().Fatalf(msg, args...) }
