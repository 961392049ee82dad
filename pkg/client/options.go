package client

import (
	"crypto/tls"
	"time"

	"github.com/hostlink/uplink/pkg/dialer"
	"github.com/hostlink/uplink/pkg/logger"
	"github.com/hostlink/uplink/pkg/path"
	"github.com/hostlink/uplink/pkg/policy"
)

const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxAuthAttempts = 5
)

type Options struct {
	Dialer          dialer.Dialer
	TLSConfig       *tls.Config
	Timeout         time.Duration
	Linger          time.Duration
	MaxBodySize     int64
	MaxAuthAttempts int
	Preferrer       path.Preferrer
	Deobfuscator    policy.Deobfuscator
	ProxyFromEnv    func() string
	Logger          logger.Logger
}

type Option func(opts *Options)

// DialerOption replaces the TCP dialer used for the first hop of every
// path.
func DialerOption(d dialer.Dialer) Option {
	return func(opts *Options) {
		opts.Dialer = d
	}
}

// TLSConfigOption sets the TLS config used towards the server. Without
// it the config is built from the ca_file and tls_verify settings.
func TLSConfigOption(cfg *tls.Config) Option {
	return func(opts *Options) {
		opts.TLSConfig = cfg
	}
}

// TimeoutOption bounds every connect, handshake and exchange. Without it
// the timeout setting of the store applies.
func TimeoutOption(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// LingerOption sets how long a connection is watched after a complete
// response for bytes past its end.
func LingerOption(d time.Duration) Option {
	return func(opts *Options) {
		opts.Linger = d
	}
}

// MaxBodySizeOption bounds response bodies that declare no length.
func MaxBodySizeOption(n int64) Option {
	return func(opts *Options) {
		opts.MaxBodySize = n
	}
}

func MaxAuthAttemptsOption(n int) Option {
	return func(opts *Options) {
		opts.MaxAuthAttempts = n
	}
}

func PreferrerOption(p path.Preferrer) Option {
	return func(opts *Options) {
		opts.Preferrer = p
	}
}

func DeobfuscatorOption(d policy.Deobfuscator) Option {
	return func(opts *Options) {
		opts.Deobfuscator = d
	}
}

func ProxyFromEnvOption(f func() string) Option {
	return func(opts *Options) {
		opts.ProxyFromEnv = f
	}
}

func LoggerOption(logger logger.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}
