// Package logging builds the zap loggers shared by the CLI and both servers.
package logging

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Options struct {
	Verbose bool
	JSON    bool
	// Service tags every entry so the two servers can share a log sink.
	Service string
	// Output defaults to stderr.
	Output io.Writer
}

// New returns a JSON or console logger. Console output drops timestamps
// and callers, since it is meant for a terminal.
func New(opts Options) *zap.Logger {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(encoder(opts.JSON), zapcore.Lock(zapcore.AddSync(out)), level)

	zapOpts := []zap.Option{zap.ErrorOutput(zapcore.Lock(zapcore.AddSync(out)))}
	if opts.Verbose {
		zapOpts = append(zapOpts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	logger := zap.New(core, zapOpts...)
	if opts.Service != "" {
		logger = logger.With(zap.String("service", opts.Service))
	}
	return logger
}

func encoder(json bool) zapcore.Encoder {
	if json {
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "ts"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeDuration = zapcore.StringDurationEncoder
		return zapcore.NewJSONEncoder(cfg)
	}

	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return zapcore.NewConsoleEncoder(cfg)
}
