package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"strconv"

	"github.com/hostlink/uplink/pkg/auth"
	tls_util "github.com/hostlink/uplink/pkg/common/util/tls"
	"github.com/hostlink/uplink/pkg/connector"
	http_connector "github.com/hostlink/uplink/pkg/connector/http"
	"github.com/hostlink/uplink/pkg/logger"
	"github.com/hostlink/uplink/pkg/path"
	"github.com/hostlink/uplink/pkg/transport"
)

// route opens connections to the server over one transport path: the
// first hop is dialed, a tunnel requested when the hop is a proxy or
// relay, and TLS negotiated end to end with the server.
type route struct {
	path      *path.TransportPath
	base      *url.URL
	tlsConfig *tls.Config
	auths     *auth.Cache
	options   *Options
	logger    logger.Logger
}

func (r *route) target() (string, int, error) {
	port := 443
	if r.base.Scheme == "http" {
		port = 80
	}
	return path.SplitHostPort(r.base.Host, port)
}

func (r *route) Connect(ctx context.Context) (*transport.Conn, error) {
	host, port, err := r.target()
	if err != nil {
		return nil, err
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	var conn net.Conn
	if r.path.IsDirect() {
		conn, err = r.options.Dialer.Dial(ctx, address)
	} else {
		a := r.auths.Get(auth.Key{
			ProxyHost:  r.path.Host,
			ProxyPort:  r.path.Port,
			User:       r.path.Username,
			Pass:       r.path.Password,
			TargetHost: host,
			TargetPort: port,
		})
		c := http_connector.NewConnector(r.path.Addr(),
			connector.DialerOption(r.options.Dialer),
			connector.TimeoutOption(r.options.Timeout),
			connector.MaxAttemptsOption(r.options.MaxAuthAttempts),
			connector.LoggerOption(r.logger),
		)
		conn, err = c.Connect(ctx, address, connector.AuthenticatorConnectOption(a))
	}
	if err != nil {
		return nil, err
	}

	if r.base.Scheme != "http" {
		conn, err = tls_util.WrapTLSClient(ctx, conn, r.tlsConfig, host, r.options.Timeout)
		if err != nil {
			return nil, err
		}
	}

	return transport.NewConn(conn, r.path, r.base,
		transport.TimeoutConnOption(r.options.Timeout),
		transport.LingerConnOption(r.options.Linger),
		transport.MaxBodySizeConnOption(r.options.MaxBodySize),
		transport.LoggerConnOption(r.logger),
	), nil
}
