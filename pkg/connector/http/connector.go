package http

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/hostlink/uplink/pkg/connector"
	"github.com/hostlink/uplink/pkg/dialer"
	"github.com/hostlink/uplink/pkg/logger"
	"github.com/hostlink/uplink/pkg/transport"
)

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 5
)

type httpConnector struct {
	proxy   string
	options connector.Options
}

// NewConnector returns a Connector that tunnels through the HTTP proxy at
// proxyAddr (host:port) with CONNECT.
func NewConnector(proxyAddr string, opts ...connector.Option) connector.Connector {
	options := connector.Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.Dialer == nil {
		options.Dialer = dialer.NewNetDialer(dialer.TimeoutOption(options.Timeout))
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = DefaultMaxAttempts
	}
	if options.Logger == nil {
		options.Logger = logger.Nop()
	}

	return &httpConnector{
		proxy:   proxyAddr,
		options: options,
	}
}

// Connect dials the proxy and asks it for a tunnel to address. Every
// attempt uses a fresh connection, and the exchange is abandoned when ctx
// is done. A 407 is answered through the
// authenticator and the tunnel requested again, at most MaxAttempts times
// in total.
func (c *httpConnector) Connect(ctx context.Context, address string, opts ...connector.ConnectOption) (net.Conn, error) {
	var copts connector.ConnectOptions
	for _, opt := range opts {
		opt(&copts)
	}

	log := c.options.Logger.WithFields(map[string]any{
		"proxy":   c.proxy,
		"address": address,
	})

	for i := 0; i < c.options.MaxAttempts; i++ {
		conn, err := c.options.Dialer.Dial(ctx, c.proxy)
		if err != nil {
			return nil, err
		}

		var header string
		if a := copts.Authenticator; a != nil {
			header = a.AuthHeader()
		}

		resp, br, err := c.connect(ctx, conn, address, header, log)
		if err != nil {
			conn.Close()
			if ctx.Err() != nil {
				return nil, fmt.Errorf("connect %s via %s: %w", address, c.proxy, ctx.Err())
			}
			return nil, err
		}

		if resp.StatusCode == http.StatusOK {
			log.Debugf("tunnel established, attempt %d", i+1)
			if br.Buffered() > 0 {
				return &bufferedConn{Conn: conn, br: br}, nil
			}
			return conn, nil
		}
		conn.Close()

		if resp.StatusCode != http.StatusProxyAuthRequired {
			return nil, fmt.Errorf("connect %s via %s: %s", address, c.proxy, resp.Status)
		}
		if copts.Authenticator == nil {
			return nil, fmt.Errorf("%w: no credentials for %s", transport.ErrProxyAuthExhausted, c.proxy)
		}

		ok, err := copts.Authenticator.UpdateAuthHeader(resp)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", transport.ErrProxyAuthExhausted, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: challenge from %s not answerable", transport.ErrProxyAuthExhausted, c.proxy)
		}
		log.Debugf("proxy authentication required, retrying")
	}

	return nil, fmt.Errorf("%w: %d attempts", transport.ErrProxyAuthExhausted, c.options.MaxAttempts)
}

func (c *httpConnector) connect(ctx context.Context, conn net.Conn, address, authHeader string, log logger.Logger) (*http.Response, *bufio.Reader, error) {
	req := &http.Request{
		Method:     http.MethodConnect,
		URL:        &url.URL{Host: address},
		Host:       address,
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
	}
	for k, v := range c.options.Header {
		req.Header[k] = append([]string(nil), v...)
	}
	req.Header.Set("Proxy-Connection", "keep-alive")
	if authHeader != "" {
		req.Header.Set("Proxy-Authorization", authHeader)
	}

	if log.IsLevelEnabled(logger.DebugLevel) {
		dump, _ := httputil.DumpRequest(req, false)
		log.Debug(string(dump))
	}

	conn.SetDeadline(time.Now().Add(c.options.Timeout))
	defer conn.SetDeadline(time.Time{})

	// unblock the exchange when ctx is done
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := req.Write(conn); err != nil {
		return nil, nil, err
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return nil, nil, err
	}

	if log.IsLevelEnabled(logger.DebugLevel) {
		dump, _ := httputil.DumpResponse(resp, false)
		log.Debug(string(dump))
	}

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
	}
	return resp, br, nil
}

// bufferedConn keeps bytes the proxy sent right after its 200.
type bufferedConn struct {
	net.Conn
	br *bufio.Reader
}

func (c *bufferedConn) Read(b []byte) (int, error) {
	return c.br.Read(b)
}
