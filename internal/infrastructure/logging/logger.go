package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Output encodings
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Logger is the root logger. Components log through named children.
type Logger struct {
	*zap.Logger
}

// Config selects level, encoding and destinations.
type Config struct {
	Level       string   // debug, info, warn, error
	Development bool     // stack traces on warn, console encoding by default
	Format      string   // json or console; empty follows Development
	OutputPaths []string // defaults to stdout
}

// New builds a logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	format, err := resolveFormat(cfg.Format, cfg.Development)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = format
	zapCfg.EncoderConfig = encoderConfig(format)
	zapCfg.Sampling = nil
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &Logger{Logger: logger.Named("webdesk")}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Component returns a child logger for one subsystem, such as "ws" or "upstream".
func (l *Logger) Component(name string) *zap.Logger {
	return l.Logger.Named(name)
}

func resolveFormat(format string, development bool) (string, error) {
	switch strings.ToLower(format) {
	case "":
		if development {
			return FormatConsole, nil
		}
		return FormatJSON, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatConsole:
		return FormatConsole, nil
	}
	return "", fmt.Errorf("invalid log format %q", format)
}

func encoderConfig(format string) zapcore.EncoderConfig {
	if format == FormatConsole {
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return enc
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	return enc
}
