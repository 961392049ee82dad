package http

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hostlink/uplink/pkg/auth"
	"github.com/hostlink/uplink/pkg/connector"
	"github.com/hostlink/uplink/pkg/dialer"
	"github.com/hostlink/uplink/pkg/internal/proxytest"
	"github.com/hostlink/uplink/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				io.Copy(conn, conn)
			}()
		}
	}()
	return ln.Addr().String()
}

func newProxy(t *testing.T, opts ...proxytest.Option) *proxytest.Proxy {
	p, err := proxytest.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func authenticator(p *proxytest.Proxy, target, user, pass string) *auth.Authenticator {
	host, port, _ := net.SplitHostPort(target)
	n, _ := strconv.Atoi(port)
	return auth.New(auth.Key{
		ProxyHost:  p.Host(),
		ProxyPort:  p.Port(),
		User:       user,
		Pass:       pass,
		TargetHost: host,
		TargetPort: n,
	})
}

func assertEcho(t *testing.T, conn net.Conn) {
	conn.SetDeadline(time.Now().Add(5 * time.Second))
	_, err := conn.Write([]byte("ping"))
	require.NoError(t, err)
	b := make([]byte, 4)
	_, err = io.ReadFull(conn, b)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(b))
}

func TestConnectOpenProxy(t *testing.T) {
	target := echoServer(t)
	p := newProxy(t)

	c := NewConnector(p.Addr(), connector.HeaderOption(http.Header{"User-Agent": {"uplink"}}))
	conn, err := c.Connect(context.Background(), target)
	require.NoError(t, err)
	defer conn.Close()

	assertEcho(t, conn)

	records := p.Records()
	require.Len(t, records, 1)
	assert.Equal(t, target, records[0].Target)
	assert.Empty(t, records[0].Authorization)
}

func TestConnectBasic(t *testing.T) {
	target := echoServer(t)
	p := newProxy(t, proxytest.UsersOption(map[string]string{"agent": "secret"}))

	a := authenticator(p, target, "agent", "secret")
	c := NewConnector(p.Addr())
	conn, err := c.Connect(context.Background(), target, connector.AuthenticatorConnectOption(a))
	require.NoError(t, err)
	defer conn.Close()

	assertEcho(t, conn)

	records := p.Records()
	require.Len(t, records, 2)
	assert.Equal(t, http.StatusProxyAuthRequired, records[0].Status)
	assert.Empty(t, records[0].Authorization)
	assert.Equal(t, http.StatusOK, records[1].Status)
	assert.True(t, strings.HasPrefix(records[1].Authorization, "Basic "))

	// the cached header is sent up front on the next tunnel
	conn2, err := c.Connect(context.Background(), target, connector.AuthenticatorConnectOption(a))
	require.NoError(t, err)
	conn2.Close()
	assert.Len(t, p.Records(), 3)
}

func TestConnectBasicRefused(t *testing.T) {
	target := echoServer(t)
	p := newProxy(t, proxytest.UsersOption(map[string]string{"agent": "secret"}))

	c := NewConnector(p.Addr())
	_, err := c.Connect(context.Background(), target,
		connector.AuthenticatorConnectOption(authenticator(p, target, "agent", "wrong")))
	assert.ErrorIs(t, err, transport.ErrProxyAuthExhausted)
	assert.Len(t, p.Records(), 2)
}

func TestConnectDigest(t *testing.T) {
	for _, algorithm := range []string{"", "MD5", "MD5-sess", "SHA-256", "SHA-256-sess"} {
		t.Run("algorithm="+algorithm, func(t *testing.T) {
			target := echoServer(t)
			p := newProxy(t,
				proxytest.UsersOption(map[string]string{"agent": "secret"}),
				proxytest.SchemesOption(proxytest.Digest, proxytest.Basic),
				proxytest.AlgorithmOption(algorithm),
				proxytest.QopOption("auth,auth-int"),
				proxytest.OpaqueOption("5ccc069c403ebaf9f0171e9517f40e41"),
			)

			c := NewConnector(p.Addr())
			conn, err := c.Connect(context.Background(), target,
				connector.AuthenticatorConnectOption(authenticator(p, target, "agent", "secret")))
			require.NoError(t, err)
			defer conn.Close()

			assertEcho(t, conn)

			records := p.Records()
			require.Len(t, records, 2)
			assert.True(t, strings.HasPrefix(records[1].Authorization, "Digest "))
		})
	}
}

func TestConnectDigestWithoutQop(t *testing.T) {
	target := echoServer(t)
	p := newProxy(t,
		proxytest.UsersOption(map[string]string{"agent": "secret"}),
		proxytest.SchemesOption(proxytest.Digest),
	)

	c := NewConnector(p.Addr())
	conn, err := c.Connect(context.Background(), target,
		connector.AuthenticatorConnectOption(authenticator(p, target, "agent", "secret")))
	require.NoError(t, err)
	conn.Close()
}

func TestConnectUnsupportedQop(t *testing.T) {
	target := echoServer(t)
	p := newProxy(t,
		proxytest.UsersOption(map[string]string{"agent": "secret"}),
		proxytest.SchemesOption(proxytest.Digest),
		proxytest.QopOption("auth-int"),
	)

	c := NewConnector(p.Addr())
	_, err := c.Connect(context.Background(), target,
		connector.AuthenticatorConnectOption(authenticator(p, target, "agent", "secret")))
	assert.ErrorIs(t, err, transport.ErrProxyAuthExhausted)
	assert.ErrorIs(t, err, auth.ErrUnsupportedQop)
	assert.Len(t, p.Records(), 1)
}

func TestConnectWithoutCredentials(t *testing.T) {
	target := echoServer(t)
	p := newProxy(t, proxytest.UsersOption(map[string]string{"agent": "secret"}))

	c := NewConnector(p.Addr())
	_, err := c.Connect(context.Background(), target)
	assert.ErrorIs(t, err, transport.ErrProxyAuthExhausted)

	_, err = c.Connect(context.Background(), target,
		connector.AuthenticatorConnectOption(authenticator(p, target, "", "")))
	assert.ErrorIs(t, err, transport.ErrProxyAuthExhausted)
}

func TestConnectAttemptsBounded(t *testing.T) {
	target := echoServer(t)
	// every challenge carries a fresh nonce, so a wrong password keeps
	// producing new digest answers
	p := newProxy(t,
		proxytest.UsersOption(map[string]string{"agent": "secret"}),
		proxytest.SchemesOption(proxytest.Digest),
		proxytest.QopOption("auth"),
	)

	c := NewConnector(p.Addr(), connector.MaxAttemptsOption(3))
	_, err := c.Connect(context.Background(), target,
		connector.AuthenticatorConnectOption(authenticator(p, target, "agent", "wrong")))
	assert.ErrorIs(t, err, transport.ErrProxyAuthExhausted)
	assert.Len(t, p.Records(), 3)

	c = NewConnector(p.Addr())
	_, err = c.Connect(context.Background(), target,
		connector.AuthenticatorConnectOption(authenticator(p, target, "agent", "wrong")))
	assert.ErrorIs(t, err, transport.ErrProxyAuthExhausted)
	assert.Len(t, p.Records(), 3+DefaultMaxAttempts)
}

func TestConnectStatus(t *testing.T) {
	target := echoServer(t)
	p := newProxy(t, proxytest.StatusOption(http.StatusBadGateway))

	c := NewConnector(p.Addr())
	_, err := c.Connect(context.Background(), target)
	require.Error(t, err)
	assert.False(t, errors.Is(err, transport.ErrProxyAuthExhausted))
	assert.Contains(t, err.Error(), "502")
}

func TestConnectDialError(t *testing.T) {
	refused := errors.New("refused")
	d := dialer.DialFunc(func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, refused
	})

	c := NewConnector("192.0.2.1:3128", connector.DialerOption(d))
	_, err := c.Connect(context.Background(), "core.example.com:443")
	assert.ErrorIs(t, err, refused)
}

func TestConnectCanceledDuringExchange(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// accepts the tunnel request and never answers
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(io.Discard, conn)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	c := NewConnector(ln.Addr().String(), connector.TimeoutOption(30*time.Second))
	start := time.Now()
	_, err = c.Connect(ctx, "core.example.com:443")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
