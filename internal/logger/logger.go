package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process wide logger. It discards everything until Init is called.
var Log = zap.NewNop().Sugar()

// Init replaces Log. With a logPath the panel appends plain text to that
// file (it sits next to the core logs); otherwise it writes colored output to
// stdout. verbose enables debug level and caller info.
func Init(verbose bool, logPath string) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	sink, plain := openSink(logPath)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig(plain, verbose)), sink, level)

	var opts []zap.Option
	if verbose {
		opts = append(opts, zap.AddCaller())
	}
	Log = zap.New(core, opts...).Sugar()
}

func encoderConfig(plain, verbose bool) zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if plain {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.EncodeCaller = nil
	if verbose {
		cfg.EncodeCaller = zapcore.ShortCallerEncoder
	}
	return cfg
}

// openSink reports whether the returned sink is a file, which gets no colors.
func openSink(logPath string) (zapcore.WriteSyncer, bool) {
	if logPath == "" {
		return zapcore.AddSync(os.Stdout), false
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v\n", logPath, err)
		return zapcore.AddSync(os.Stdout), false
	}
	return zapcore.AddSync(f), true
}

// Named returns a child logger tagged with the component name.
func Named(name string) *zap.SugaredLogger {
	return Log.Named(name)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = Log.Sync()
}
