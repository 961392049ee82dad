package config

import (
	"io"
	"os"
	"path/filepath"

	"github.com/hostlink/uplink/pkg/logger"
)

// ParseLogger builds a logger from cfg. Output is stderr (default),
// stdout, none, or a file path opened for appending.
func ParseLogger(cfg *LogConfig) logger.Logger {
	if cfg == nil {
		return logger.NewLogger()
	}

	opts := []logger.LoggerOption{
		logger.FormatLoggerOption(logger.LogFormat(cfg.Format)),
		logger.LevelLoggerOption(logger.LogLevel(cfg.Level)),
	}

	var out io.Writer = os.Stderr
	switch cfg.Output {
	case "none", "null":
		return logger.Nop()
	case "stdout":
		out = os.Stdout
	case "stderr", "":
	default:
		os.MkdirAll(filepath.Dir(cfg.Output), 0755)
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			logger.Default().Warn(err)
		} else {
			out = f
		}
	}
	opts = append(opts, logger.OutputLoggerOption(out))

	return logger.NewLogger(opts...)
}
