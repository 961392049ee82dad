// Package transport carries requests to the management server over one
// established connection and turns the responses into results or typed
// errors.
package transport

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/hostlink/uplink/pkg/logger"
	"github.com/hostlink/uplink/pkg/path"
)

const (
	DefaultTimeout = 30 * time.Second
	// DefaultLinger is how long a complete response is watched for bytes
	// past its end.
	DefaultLinger  = 100 * time.Millisecond

	idleCheck = time.Millisecond
)

type ConnOptions struct {
	Timeout     time.Duration
	Linger      time.Duration
	MaxBodySize int64
	Logger      logger.Logger
}

type ConnOption func(opts *ConnOptions)

func TimeoutConnOption(timeout time.Duration) ConnOption {
	return func(opts *ConnOptions) {
		opts.Timeout = timeout
	}
}

// LingerConnOption sets how long the connection is read after a complete
// response. Bytes arriving in that time fail the response with
// ErrResponseTooLarge.
func LingerConnOption(d time.Duration) ConnOption {
	return func(opts *ConnOptions) {
		opts.Linger = d
	}
}

func MaxBodySizeConnOption(n int64) ConnOption {
	return func(opts *ConnOptions) {
		opts.MaxBodySize = n
	}
}

func LoggerConnOption(logger logger.Logger) ConnOption {
	return func(opts *ConnOptions) {
		opts.Logger = logger
	}
}

// Conn is an established connection to the server, direct or through a
// tunnel, together with the path and base URL it was opened for.
type Conn struct {
	conn    net.Conn
	br      *bufio.Reader
	path    *path.TransportPath
	base    *url.URL
	options ConnOptions
	broken  bool
}

func NewConn(conn net.Conn, p *path.TransportPath, base *url.URL, opts ...ConnOption) *Conn {
	options := ConnOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Timeout <= 0 {
		options.Timeout = DefaultTimeout
	}
	if options.Linger <= 0 {
		options.Linger = DefaultLinger
	}
	if options.MaxBodySize <= 0 {
		options.MaxBodySize = DefaultMaxBodySize
	}
	if options.Logger == nil {
		options.Logger = logger.Nop()
	}

	return &Conn{
		conn:    conn,
		br:      bufio.NewReader(conn),
		path:    p,
		base:    base,
		options: options,
	}
}

func (c *Conn) Path() *path.TransportPath {
	return c.path
}

func (c *Conn) BaseURL() *url.URL {
	return c.base
}

// Broken reports whether the connection must not be reused.
func (c *Conn) Broken() bool {
	return c.broken
}

func (c *Conn) Close() error {
	c.broken = true
	return c.conn.Close()
}

// RoundTrip sends req and reads its response. On any error other than an
// *HTTPError read in full the connection is marked broken.
//
// Data the server sent while the connection was idle means the previous
// exchange overran, and the request is not sent.
func (c *Conn) RoundTrip(req *Request, cookie string) (*Response, error) {
	if c.broken {
		return nil, connectionLost(errors.New("not connected"))
	}
	if c.excess(idleCheck) {
		c.broken = true
		return nil, connectionLost(errors.New("unexpected data on idle connection"))
	}
	if c.broken {
		return nil, connectionLost(errors.New("closed by peer"))
	}

	hreq, err := req.HTTPRequest(c.base, cookie)
	if err != nil {
		return nil, err
	}

	log := c.options.Logger
	if log.IsLevelEnabled(logger.DebugLevel) {
		dump, _ := httputil.DumpRequest(hreq, false)
		log.Debug(string(dump))
	}

	c.conn.SetDeadline(time.Now().Add(c.options.Timeout))
	defer c.conn.SetDeadline(time.Time{})

	if err := hreq.Write(c.conn); err != nil {
		c.broken = true
		return nil, connectionLost(err)
	}

	resp, err := ReadResponse(c.br, hreq, c.options.MaxBodySize)
	var herr *HTTPError
	if resp != nil && !resp.Close && (err == nil || errors.As(err, &herr)) && c.excess(c.options.Linger) {
		resp.Close = true
		err = fmt.Errorf("%w: data past the end of the response", ErrResponseTooLarge)
	}
	if resp == nil || resp.Close {
		c.broken = true
	}
	if resp != nil && log.IsLevelEnabled(logger.DebugLevel) {
		log.Debugf("%s %s: %s, %d bytes", hreq.Method, hreq.URL.Path, resp.Status, len(resp.Body))
	}
	return resp, err
}

// excess waits up to d for bytes after the last complete response. A peer
// that closed the connection marks it broken.
func (c *Conn) excess(d time.Duration) bool {
	if c.br.Buffered() > 0 {
		return true
	}

	c.conn.SetReadDeadline(time.Now().Add(d))
	defer c.conn.SetReadDeadline(time.Time{})

	_, err := c.br.Peek(1)
	if err == nil {
		return true
	}
	var ne net.Error
	if !errors.As(err, &ne) || !ne.Timeout() {
		c.broken = true
	}
	return false
}
