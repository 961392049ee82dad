// Package client keeps an agent connected to its management server.
//
// A Client owns at most one live connection. Each request reuses it while
// the transport policy is unchanged; otherwise the client rebuilds the
// list of candidate paths from the policy store and connects over the
// first one that works, starting with the path that worked last time.
// A Client is meant for one caller at a time and is not safe for
// concurrent use.
package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hostlink/uplink/pkg/auth"
	tls_util "github.com/hostlink/uplink/pkg/common/util/tls"
	"github.com/hostlink/uplink/pkg/dialer"
	"github.com/hostlink/uplink/pkg/logger"
	"github.com/hostlink/uplink/pkg/metadata"
	"github.com/hostlink/uplink/pkg/metrics"
	"github.com/hostlink/uplink/pkg/path"
	"github.com/hostlink/uplink/pkg/policy"
	"github.com/hostlink/uplink/pkg/transport"
)

type Client struct {
	md        metadata.Metadata
	options   Options
	tlsConfig *tls.Config
	auths     *auth.Cache
	logger    logger.Logger

	conn     *transport.Conn
	snapshot *policy.Snapshot
	lastGood *path.TransportPath
	// lastGoodID is the persisted identifier of the last good path, used
	// until a path is confirmed in this process.
	lastGoodID string
	lastURL    string
	cookie     string
}

// New creates a client reading its policy from md. md is also written
// to: the identifier of the last good path is stored under
// last_good_relay_id.
func New(md metadata.Metadata, opts ...Option) (*Client, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Timeout <= 0 {
		options.Timeout = metadata.GetDuration(md, policy.KeyTimeout, DefaultTimeout)
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.MaxBodySize <= 0 {
		options.MaxBodySize = transport.DefaultMaxBodySize
	}
	if options.MaxAuthAttempts <= 0 {
		options.MaxAuthAttempts = DefaultMaxAuthAttempts
	}
	if options.Logger == nil {
		options.Logger = logger.Default()
	}
	if options.Dialer == nil {
		options.Dialer = dialer.NewNetDialer(
			dialer.TimeoutOption(options.Timeout),
			dialer.LoggerOption(options.Logger),
		)
	}

	tlsConfig := options.TLSConfig
	if tlsConfig == nil {
		var err error
		tlsConfig, err = tls_util.LoadClientConfig(tls_util.ClientOptions{
			CAFile: metadata.GetString(md, policy.KeyCAFile, ""),
			Verify: metadata.GetBool(md, policy.KeyTLSVerify, true),
		})
		if err != nil {
			return nil, fmt.Errorf("client: tls config: %w", err)
		}
	}

	return &Client{
		md:         md,
		options:    options,
		tlsConfig:  tlsConfig,
		auths:      auth.NewCache(),
		logger:     options.Logger,
		lastGoodID: metadata.GetString(md, policy.KeyLastGoodRelayID, ""),
	}, nil
}

// Request sends one request to the server and returns the response
// headers and decoded body. Only a 200 response is a success; any other
// status is returned as an *HTTPError, matching ErrUnauthorized,
// ErrServiceUnavailable or ErrGatewayTimeout where applicable. When no
// path reaches the server the error is ErrNetworkUnavailable.
func (c *Client) Request(ctx context.Context, reqPath string, header http.Header, body []byte, method string) (http.Header, string, error) {
	req := transport.NewRequest(method, reqPath, header, body)
	snapshot := policy.Capture(c.md)

	if c.snapshot != nil {
		if change := c.snapshot.Diff(snapshot); change.Any {
			if c.conn != nil {
				c.logger.Info("transport policy changed, reconnecting")
				c.disconnect()
			}
			if change.Path {
				c.lastGood = nil
				c.lastGoodID = ""
			}
		}
	}

	if c.conn != nil {
		resp, err := c.exchange(c.conn, req)
		if !errors.Is(err, transport.ErrConnectionLost) {
			return c.result(resp, err)
		}
		c.logger.Warnf("%s: %v", c.conn.Path(), err)
		c.lost()
	}

	urls := c.orderURLs(policy.URLs(c.md))
	if len(urls) == 0 {
		return nil, "", ErrNoServerURL
	}

	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		base, err := url.Parse(u)
		if err != nil || base.Host == "" {
			c.logger.Warnf("invalid server url %q", u)
			continue
		}

		resp, reached, err := c.attempt(ctx, base, snapshot, req)
		if reached {
			c.lastURL = u
			return c.result(resp, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return nil, "", ErrNetworkUnavailable
}

// attempt tries every candidate path towards base until one of them gets
// a response from the server, and reports whether that happened.
func (c *Client) attempt(ctx context.Context, base *url.URL, snapshot *policy.Snapshot, req *transport.Request) (*transport.Response, bool, error) {
	log := c.logger.WithFields(map[string]any{
		"url": base.String(),
	})

	paths := path.NewBuilder(c.md,
		path.PreferrerOption(c.options.Preferrer),
		path.DeobfuscatorOption(c.options.Deobfuscator),
		path.ProxyFromEnvOption(c.options.ProxyFromEnv),
		path.LoggerOption(log),
	).Build()
	if len(paths) == 0 {
		log.Warn("no transport path configured")
		return nil, false, nil
	}

	tried := make(map[string]bool)
	for _, p := range c.order(paths) {
		if tried[p.Key()] {
			continue
		}
		tried[p.Key()] = true

		if ctx.Err() != nil {
			return nil, false, nil
		}

		plog := log.WithFields(map[string]any{
			"path": p.String(),
			"kind": p.Kind(),
		})
		if p.IsRelay() {
			plog = plog.WithFields(map[string]any{"relay": p.ID()})
		}

		r := &route{
			path:      p,
			base:      base,
			tlsConfig: c.tlsConfig,
			auths:     c.auths,
			options:   &c.options,
			logger:    plog,
		}
		conn, err := r.Connect(ctx)
		if err != nil {
			metrics.ConnectAttempts(base.Host, p.Kind(), "failed").Inc()
			plog.Warnf("connect: %v", err)
			continue
		}
		metrics.ConnectAttempts(base.Host, p.Kind(), "ok").Inc()
		plog.Debugf("connected")

		c.conn = conn
		c.snapshot = snapshot
		metrics.Connected(base.Host).Set(1)

		resp, err := c.exchange(conn, req)
		if errors.Is(err, transport.ErrConnectionLost) {
			plog.Warnf("%v", err)
			c.lost()
			continue
		}
		return resp, true, err
	}

	return nil, false, nil
}

// exchange runs req on conn and applies the outcome to the client state.
func (c *Client) exchange(conn *transport.Conn, req *transport.Request) (*transport.Response, error) {
	host := conn.BaseURL().Host
	start := time.Now()

	resp, err := conn.RoundTrip(req, c.cookie)

	metrics.RequestSeconds(host).Observe(time.Since(start).Seconds())
	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
		metrics.ResponseBytes(host).Add(float64(len(resp.Body)))
	}
	metrics.Requests(host, status).Inc()

	if errors.Is(err, transport.ErrConnectionLost) {
		return nil, err
	}

	if err == nil {
		c.confirm(conn.Path())
		if resp.Cookie != "" {
			c.cookie = resp.Cookie
		}
	}
	if conn.Broken() {
		c.disconnect()
	}
	return resp, err
}

func (c *Client) result(resp *transport.Response, err error) (http.Header, string, error) {
	if err != nil {
		return nil, "", err
	}
	return resp.Header, resp.Text(), nil
}

// confirm records p as the last good path and persists its identifier.
func (c *Client) confirm(p *path.TransportPath) {
	c.lastGood = p
	c.lastGoodID = p.ID()

	if metadata.GetString(c.md, policy.KeyLastGoodRelayID, "") == p.ID() {
		return
	}
	if err := c.md.Set(policy.KeyLastGoodRelayID, p.ID()); err != nil {
		c.logger.Warnf("persist last good path: %v", err)
	}
}

// order moves the last good path to the front of paths.
func (c *Client) order(paths []*path.TransportPath) []*path.TransportPath {
	i := path.Find(paths, c.lastGood)
	if i < 0 && c.lastGood == nil {
		i = path.FindID(paths, c.lastGoodID)
	}
	if i <= 0 {
		return paths
	}

	ordered := make([]*path.TransportPath, 0, len(paths))
	ordered = append(ordered, paths[i])
	ordered = append(ordered, paths[:i]...)
	return append(ordered, paths[i+1:]...)
}

// orderURLs moves the last successful URL to the front of urls.
func (c *Client) orderURLs(urls []string) []string {
	for i, u := range urls {
		if u == c.lastURL && i > 0 {
			ordered := append([]string{u}, urls[:i]...)
			return append(ordered, urls[i+1:]...)
		}
	}
	return urls
}

// lost drops the connection after a transport failure.
func (c *Client) lost() {
	c.disconnect()
	c.cookie = ""
}

func (c *Client) disconnect() {
	if c.conn == nil {
		return
	}
	metrics.Connected(c.conn.BaseURL().Host).Set(0)
	c.conn.Close()
	c.conn = nil
}

// Close drops the live connection, if any. The client stays usable.
func (c *Client) Close() error {
	c.disconnect()
	return nil
}

// LastGoodPath returns the path of the last 200 response, or nil.
func (c *Client) LastGoodPath() *path.TransportPath {
	return c.lastGood
}

// Cookie returns the name=value pair sent with every request.
func (c *Client) Cookie() string {
	return c.cookie
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	return c.conn != nil
}
