package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapConfig controls the zap backend behind the Logger facade.
type ZapConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "console", "json"
	Output io.Writer
	Fields map[string]string
}

// ZapBackend adapts a zap sugared logger to LogFuncs so it can sit behind NewLogger.
type ZapBackend struct {
	logger *zap.Logger
	sugar  *zap.SugaredLogger
}

// NewZapBackend creates a zap logger from configuration.
func NewZapBackend(config ZapConfig) *ZapBackend {
	level := zapLevel(config.Level)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	encoderConfig.LevelKey = "level"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	var encoder zapcore.Encoder
	switch config.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	var output io.Writer = os.Stdout
	if config.Output != nil {
		output = config.Output
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(output)), level)

	fields := make([]zap.Field, 0, len(config.Fields))
	for key, value := range config.Fields {
		fields = append(fields, zap.String(key, value))
	}
	logger := zap.New(core).With(fields...)

	return &ZapBackend{
		logger: logger,
		sugar:  logger.Sugar(),
	}
}

// LogFuncs exposes the backend in the shape NewLogger expects.
func (z *ZapBackend) LogFuncs() LogFuncs {
	return LogFuncs{
		Debugf: z.sugar.Debugf,
		Infof:  z.sugar.Infof,
		Warnf:  z.sugar.Warnf,
		Errorf: z.sugar.Errorf,
	}
}

// Sync flushes buffered entries.
func (z *ZapBackend) Sync() error {
	return z.logger.Sync()
}

// zap v1.20 has no zapcore.ParseLevel
func zapLevel(level string) zapcore.Level {
	parsed, _ := ParseLevel(level)
	switch parsed {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
