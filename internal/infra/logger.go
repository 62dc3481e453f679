package infra

import (
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// LogFileName is created next to the executable.
	LogFileName = "daemon.log"

	// LogTimeLayout matches the timestamps shown in status messages.
	LogTimeLayout = "02/01/2006 15:04:05"
)

var (
	loggerOnce   sync.Once
	sharedLogger *zap.Logger
)

// LoggerOption adjusts the logger built by SetupLogger.
type LoggerOption func(*loggerOptions)

type loggerOptions struct {
	stderr bool
}

// WithoutStderr keeps log output in the file only. Used by full-screen
// terminal front ends.
func WithoutStderr() LoggerOption {
	return func(o *loggerOptions) { o.stderr = false }
}

// SetupLogger builds the process-wide logger on first call and returns the
// same instance afterwards. Output goes to stderr and to dir/daemon.log.
func SetupLogger(dir string, opts ...LoggerOption) *zap.Logger {
	loggerOnce.Do(func() {
		o := loggerOptions{stderr: true}
		for _, opt := range opts {
			opt(&o)
		}
		sharedLogger = buildLogger(dir, o)
	})
	return sharedLogger
}

func buildLogger(dir string, o loggerOptions) *zap.Logger {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.Sampling = nil
	config.OutputPaths = []string{filepath.Join(dir, LogFileName)}
	if o.stderr {
		config.OutputPaths = append(config.OutputPaths, "stderr")
	}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(LogTimeLayout)
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	logger, err := config.Build()
	if err == nil {
		return logger
	}

	// Fall back to stderr only if the log file cannot be opened
	config.OutputPaths = []string{"stderr"}
	logger, buildErr := config.Build()
	if buildErr != nil {
		return zap.NewNop()
	}
	logger.Warn("无法创建日志文件", zap.String("dir", dir), zap.Error(err))
	return logger
}
