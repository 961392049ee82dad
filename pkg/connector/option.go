package connector

import (
	"net/http"
	"time"

	"github.com/hostlink/uplink/pkg/auth"
	"github.com/hostlink/uplink/pkg/dialer"
	"github.com/hostlink/uplink/pkg/logger"
)

type Options struct {
	Dialer      dialer.Dialer
	Timeout     time.Duration
	MaxAttempts int
	Header      http.Header
	Logger      logger.Logger
}

type Option func(opts *Options)

func DialerOption(d dialer.Dialer) Option {
	return func(opts *Options) {
		opts.Dialer = d
	}
}

func TimeoutOption(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// MaxAttemptsOption bounds the number of tunnel requests sent while
// answering authentication challenges.
func MaxAttemptsOption(n int) Option {
	return func(opts *Options) {
		opts.MaxAttempts = n
	}
}

// HeaderOption adds fixed headers to every tunnel request.
func HeaderOption(header http.Header) Option {
	return func(opts *Options) {
		opts.Header = header
	}
}

func LoggerOption(logger logger.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

type ConnectOptions struct {
	Authenticator *auth.Authenticator
}

type ConnectOption func(opts *ConnectOptions)

// AuthenticatorConnectOption supplies the authenticator for this proxy and
// target. Without one a 407 cannot be answered.
func AuthenticatorConnectOption(a *auth.Authenticator) ConnectOption {
	return func(opts *ConnectOptions) {
		opts.Authenticator = a
	}
}
