// Package proxytest provides an in-process HTTP CONNECT proxy for tests.
// It challenges clients with Basic and Digest authentication and records
// every tunnel request it receives.
package proxytest

import (
	"bufio"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"net"
	"net/http"
	"net/http/httputil"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hostlink/uplink/pkg/auth"
	"github.com/hostlink/uplink/pkg/logger"
	"github.com/rs/xid"
)

type Scheme string

const (
	Basic  Scheme = "basic"
	Digest Scheme = "digest"
)

type Options struct {
	Users     map[string]string
	Schemes   []Scheme
	Realm     string
	Algorithm string
	Qop       string
	Opaque    string
	Status    int
	Dial      func(ctx context.Context, addr string) (net.Conn, error)
	Logger    logger.Logger
}

type Option func(opts *Options)

// UsersOption enables authentication for the given user/password pairs.
func UsersOption(users map[string]string) Option {
	return func(opts *Options) {
		opts.Users = users
	}
}

// SchemesOption sets the challenges sent with a 407, in header order.
func SchemesOption(schemes ...Scheme) Option {
	return func(opts *Options) {
		opts.Schemes = schemes
	}
}

func AlgorithmOption(algorithm string) Option {
	return func(opts *Options) {
		opts.Algorithm = algorithm
	}
}

// QopOption sets the digest qop directive. An empty value omits it.
func QopOption(qop string) Option {
	return func(opts *Options) {
		opts.Qop = qop
	}
}

func OpaqueOption(opaque string) Option {
	return func(opts *Options) {
		opts.Opaque = opaque
	}
}

// StatusOption makes the proxy answer authorized tunnel requests with
// status instead of opening them.
func StatusOption(status int) Option {
	return func(opts *Options) {
		opts.Status = status
	}
}

func DialOption(dial func(ctx context.Context, addr string) (net.Conn, error)) Option {
	return func(opts *Options) {
		opts.Dial = dial
	}
}

func LoggerOption(logger logger.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// Record is one tunnel request seen by the proxy.
type Record struct {
	Target        string
	Authorization string
	Status        int
}

type Proxy struct {
	ln      net.Listener
	users   *Users
	options Options

	mu      sync.Mutex
	nonces  map[string]bool
	records []Record
	wg      sync.WaitGroup
}

// New starts a proxy listening on a loopback port.
func New(opts ...Option) (*Proxy, error) {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if len(options.Schemes) == 0 {
		options.Schemes = []Scheme{Basic}
	}
	if options.Realm == "" {
		options.Realm = "proxytest"
	}
	if options.Dial == nil {
		options.Dial = func(ctx context.Context, addr string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", addr)
		}
	}
	if options.Logger == nil {
		options.Logger = logger.Nop()
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	p := &Proxy{
		ln:      ln,
		users:   NewUsers(options.Users),
		options: options,
		nonces:  make(map[string]bool),
	}
	p.wg.Add(1)
	go p.serve()
	return p, nil
}

func (p *Proxy) Addr() string {
	return p.ln.Addr().String()
}

func (p *Proxy) Host() string {
	return p.ln.Addr().(*net.TCPAddr).IP.String()
}

func (p *Proxy) Port() int {
	return p.ln.Addr().(*net.TCPAddr).Port
}

// URL returns the proxy address in the form used by policy settings.
func (p *Proxy) URL() string {
	return "http://" + p.Addr()
}

func (p *Proxy) Records() []Record {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Record(nil), p.records...)
}

func (p *Proxy) Close() error {
	err := p.ln.Close()
	p.wg.Wait()
	return err
}

func (p *Proxy) serve() {
	defer p.wg.Done()

	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		go p.handle(conn)
	}
}

func (p *Proxy) handle(conn net.Conn) {
	defer conn.Close()

	log := p.options.Logger.WithFields(map[string]any{
		"remote": conn.RemoteAddr().String(),
	})

	req, err := http.ReadRequest(bufio.NewReader(conn))
	if err != nil {
		log.Error(err)
		return
	}
	defer req.Body.Close()

	if log.IsLevelEnabled(logger.DebugLevel) {
		dump, _ := httputil.DumpRequest(req, false)
		log.Debug(string(dump))
	}

	resp := &http.Response{
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
	}

	rec := Record{
		Target:        req.Host,
		Authorization: req.Header.Get("Proxy-Authorization"),
	}
	record := func(status int) {
		rec.Status = status
		p.mu.Lock()
		p.records = append(p.records, rec)
		p.mu.Unlock()
	}

	if req.Method != http.MethodConnect {
		resp.StatusCode = http.StatusBadRequest
		record(resp.StatusCode)
		resp.Write(conn)
		return
	}

	if !p.authenticate(req) {
		resp.StatusCode = http.StatusProxyAuthRequired
		for _, scheme := range p.options.Schemes {
			resp.Header.Add("Proxy-Authenticate", p.challenge(scheme))
		}
		resp.Header.Set("Connection", "close")
		resp.Header.Set("Proxy-Connection", "close")
		log.Info("proxy authentication required")
		record(resp.StatusCode)
		resp.Write(conn)
		return
	}

	if p.options.Status != 0 {
		resp.StatusCode = p.options.Status
		record(resp.StatusCode)
		resp.Write(conn)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	cc, err := p.options.Dial(ctx, req.Host)
	cancel()
	if err != nil {
		log.Warn(err)
		resp.StatusCode = http.StatusServiceUnavailable
		record(resp.StatusCode)
		resp.Write(conn)
		return
	}
	defer cc.Close()

	record(http.StatusOK)
	if _, err := conn.Write([]byte("HTTP/1.1 200 Connection established\r\n\r\n")); err != nil {
		log.Warn(err)
		return
	}

	log.Infof("%s <-> %s", conn.RemoteAddr(), req.Host)
	transport(conn, cc)
}

func (p *Proxy) challenge(scheme Scheme) string {
	if scheme == Basic {
		return fmt.Sprintf(`Basic realm="%s"`, p.options.Realm)
	}

	nonce := xid.New().String()
	p.mu.Lock()
	p.nonces[nonce] = true
	p.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, `Digest realm="%s", nonce="%s"`, p.options.Realm, nonce)
	if p.options.Algorithm != "" {
		fmt.Fprintf(&b, ", algorithm=%s", p.options.Algorithm)
	}
	if p.options.Qop != "" {
		fmt.Fprintf(&b, `, qop="%s"`, p.options.Qop)
	}
	if p.options.Opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, p.options.Opaque)
	}
	return b.String()
}

func (p *Proxy) authenticate(req *http.Request) bool {
	if p.users.Empty() {
		return true
	}

	v := req.Header.Get("Proxy-Authorization")
	switch {
	case strings.HasPrefix(v, "Basic "):
		u, pass, ok := basicProxyAuth(v)
		return ok && p.hasScheme(Basic) && p.users.Authenticate(u, pass)
	case strings.HasPrefix(v, "Digest "):
		return p.hasScheme(Digest) && p.verifyDigest(v, req.Method)
	}
	return false
}

func (p *Proxy) hasScheme(scheme Scheme) bool {
	for _, s := range p.options.Schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

func basicProxyAuth(proxyAuth string) (username, password string, ok bool) {
	c, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(proxyAuth, "Basic "))
	if err != nil {
		return
	}
	cs := string(c)
	s := strings.IndexByte(cs, ':')
	if s < 0 {
		return
	}

	return cs[:s], cs[s+1:], true
}

func (p *Proxy) verifyDigest(v, method string) bool {
	cs := auth.ParseChallenges([]string{v})
	if len(cs) == 0 || cs[0].Scheme != "digest" {
		return false
	}
	params := cs[0].Params

	pass, ok := p.users.Password(params["username"])
	if !ok {
		return false
	}

	nonce := params["nonce"]
	p.mu.Lock()
	known := p.nonces[nonce]
	p.mu.Unlock()
	if !known {
		return false
	}
	if p.options.Opaque != "" && params["opaque"] != p.options.Opaque {
		return false
	}

	var newHash func() hash.Hash
	algorithm := strings.ToUpper(params["algorithm"])
	switch algorithm {
	case "", "MD5", "MD5-SESS":
		newHash = md5.New
	case "SHA-256", "SHA-256-SESS":
		newHash = sha256.New
	default:
		return false
	}
	h := func(s string) string {
		hh := newHash()
		hh.Write([]byte(s))
		return hex.EncodeToString(hh.Sum(nil))
	}

	ha1 := h(params["username"] + ":" + params["realm"] + ":" + pass)
	if strings.HasSuffix(algorithm, "-SESS") {
		ha1 = h(ha1 + ":" + nonce + ":" + params["cnonce"])
	}
	ha2 := h(method + ":" + params["uri"])

	var expected string
	if qop := params["qop"]; qop != "" {
		if _, err := strconv.ParseUint(params["nc"], 16, 32); err != nil {
			return false
		}
		expected = h(strings.Join([]string{ha1, nonce, params["nc"], params["cnonce"], qop, ha2}, ":"))
	} else {
		expected = h(ha1 + ":" + nonce + ":" + ha2)
	}
	return expected == params["response"]
}
