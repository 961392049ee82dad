package dialer

import (
	"context"
	"net"
	"time"

	"github.com/hostlink/uplink/pkg/logger"
)

const (
	DefaultTimeout = 30 * time.Second
)

var (
	_ Dialer = (*NetDialer)(nil)
)

// NetDialer dials plain TCP with a bounded connect time.
type NetDialer struct {
	Timeout time.Duration
	logger  logger.Logger
}

func NewNetDialer(opts ...Option) *NetDialer {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.Logger == nil {
		options.Logger = logger.Nop()
	}

	return &NetDialer{
		Timeout: options.Timeout,
		logger:  options.Logger,
	}
}

func (d *NetDialer) Dial(ctx context.Context, addr string) (net.Conn, error) {
	netd := net.Dialer{
		Timeout: d.Timeout,
	}
	conn, err := netd.DialContext(ctx, "tcp", addr)
	if err != nil {
		d.logger.Debugf("dial %s: %v", addr, err)
	}
	return conn, err
}
