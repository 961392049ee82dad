package tls

import (
	"context"
	"crypto/tls"
	"encoding/pem"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCA(t *testing.T, srv *httptest.Server) string {
	f := filepath.Join(t.TempDir(), "ca.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(f, data, 0600))
	return f
}

func TestLoadClientConfig(t *testing.T) {
	cfg, err := LoadClientConfig(ClientOptions{Verify: true})
	require.NoError(t, err)
	assert.False(t, cfg.InsecureSkipVerify)
	assert.Nil(t, cfg.RootCAs)
	assert.Equal(t, uint16(DefaultMinVersion), cfg.MinVersion)
	assert.Nil(t, cfg.VerifyConnection)

	_, err = LoadClientConfig(ClientOptions{CAFile: filepath.Join(t.TempDir(), "missing.pem")})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(bad, []byte("not a cert"), 0600))
	_, err = LoadClientConfig(ClientOptions{CAFile: bad})
	assert.Error(t, err)
}

func TestWrapTLSClient(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	u, _ := url.Parse(srv.URL)

	dial := func() net.Conn {
		conn, err := net.Dial("tcp", u.Host)
		require.NoError(t, err)
		return conn
	}

	// CA given, host name not checked
	cfg, err := LoadClientConfig(ClientOptions{CAFile: writeCA(t, srv)})
	require.NoError(t, err)
	conn, err := WrapTLSClient(context.Background(), dial(), cfg, "core.example.com", 5*time.Second)
	require.NoError(t, err)
	conn.Close()
	assert.Empty(t, cfg.ServerName, "caller config is not modified")

	// full verification against the system pool fails for the test cert
	cfg, err = LoadClientConfig(ClientOptions{Verify: true})
	require.NoError(t, err)
	_, err = WrapTLSClient(context.Background(), dial(), cfg, "127.0.0.1", 5*time.Second)
	assert.Error(t, err)

	// verification disabled
	conn, err = WrapTLSClient(context.Background(), dial(), &tls.Config{InsecureSkipVerify: true}, "", 5*time.Second)
	require.NoError(t, err)
	conn.Close()
}
