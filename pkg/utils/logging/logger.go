package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultDir is where log files are written when Options.Dir is empty
const DefaultDir = "logs"

// Options controls where and how verbosely the planner logs
type Options struct {
	// Env prefixes the log file name
	Env string
	// Dir holds the log files, DefaultDir when empty
	Dir string
	// ConsoleLevel is "debug", "info", "warn" or "error". Empty means info.
	ConsoleLevel string
	// Console receives the human readable output, os.Stdout when nil
	Console zapcore.WriteSyncer
}

// CloseFunc flushes the logger and closes the log file
type CloseFunc func() error

// InitLogger initializes a zap logger with console and file outputs.
// The console follows opts.ConsoleLevel, the JSON file always records debug.
// The returned CloseFunc must run once logging is done.
func InitLogger(opts Options) (*zap.Logger, CloseFunc, error) {
	consoleLevel := zapcore.InfoLevel
	if opts.ConsoleLevel != "" {
		if err := consoleLevel.UnmarshalText([]byte(opts.ConsoleLevel)); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.ConsoleLevel, err)
		}
	}

	logsDir := opts.Dir
	if logsDir == "" {
		logsDir = DefaultDir
	}
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	env := opts.Env
	if env == "" {
		env = "default"
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logFileName := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", env, timestamp))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.TimeKey = "timestamp"
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	console := opts.Console
	if console == nil {
		// Sync on a terminal or pipe fails with EINVAL, so stdout is never synced
		console = zapcore.AddSync(nopSyncWriter{os.Stdout})
	}

	fileSyncer := zapcore.AddSync(logFile)
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), console, consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), fileSyncer, zapcore.DebugLevel),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	closeFn := func() error {
		syncErr := logger.Sync()
		if err := logFile.Close(); err != nil {
			return fmt.Errorf("failed to close log file: %w", err)
		}
		return syncErr
	}

	return logger, closeFn, nil
}

// nopSyncWriter hides the Sync method of an *os.File
type nopSyncWriter struct {
	io.Writer
}
