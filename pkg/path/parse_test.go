package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProxy(t *testing.T) {
	cases := []struct {
		in   string
		host string
		port int
		user string
		pass string
	}{
		{in: "proxy:3128", host: "proxy", port: 3128},
		{in: "http://proxy", host: "proxy", port: 80},
		{in: "https://proxy", host: "proxy", port: 443},
		{in: " http://u:p@proxy:8080/ ", host: "proxy", port: 8080, user: "u", pass: "p"},
		{in: "u@proxy:8080", host: "proxy", port: 8080, user: "u"},
		{in: "[::1]:3128", host: "::1", port: 3128},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			p, err := ParseProxy(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.host, p.Host)
			assert.Equal(t, tc.port, p.Port)
			assert.Equal(t, tc.user, p.Username)
			assert.Equal(t, tc.pass, p.Password)
		})
	}
}

func TestParseProxyErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "proxy", "proxy:0", "proxy:99999", "http://:8080"} {
		_, err := ParseProxy(in)
		assert.Error(t, err, in)
	}
	_, err := ParseProxy("proxy")
	assert.ErrorIs(t, err, ErrMissingPort)
}

func TestSplitHostPort(t *testing.T) {
	host, port, err := SplitHostPort("core.example.com", 443)
	require.NoError(t, err)
	assert.Equal(t, "core.example.com", host)
	assert.Equal(t, 443, port)

	host, port, err = SplitHostPort("[::1]:8443", 443)
	require.NoError(t, err)
	assert.Equal(t, "::1", host)
	assert.Equal(t, 8443, port)

	_, _, err = SplitHostPort("core.example.com:0", 443)
	assert.Error(t, err)
}

func TestPathIdentity(t *testing.T) {
	a := &TransportPath{Host: "relay", Port: 443, RelayID: "r1", Source: SourceRelay}
	b := &TransportPath{Host: "relay", Port: 443, Source: SourcePolicy}

	assert.True(t, a.Equal(b))
	assert.Equal(t, "r1", a.ID())
	assert.Equal(t, "relay:443", b.ID())
	assert.Equal(t, "relay", a.Kind())
	assert.Equal(t, "proxy", b.Kind())
	assert.Equal(t, "direct", Direct().ID())
	assert.True(t, Direct().Equal(&TransportPath{}))
	assert.False(t, Direct().Equal(a))

	paths := []*TransportPath{b, Direct()}
	assert.Equal(t, 0, Find(paths, a))
	assert.Equal(t, 1, FindID(paths, "direct"))
	assert.Equal(t, -1, FindID(paths, "r1"))
}
