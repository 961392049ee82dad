package dialer

import (
	"time"

	"github.com/hostlink/uplink/pkg/logger"
)

type Options struct {
	Timeout time.Duration
	Logger  logger.Logger
}

type Option func(opts *Options)

func TimeoutOption(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

func LoggerOption(logger logger.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}
