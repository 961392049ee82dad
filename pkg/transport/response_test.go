package transport

import (
	"bufio"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func read(t *testing.T, raw string, method string) (*Response, error) {
	t.Helper()
	req, err := http.NewRequest(method, "https://core.example.com/ldmgmt/register", nil)
	require.NoError(t, err)
	return ReadResponse(bufio.NewReader(strings.NewReader(raw)), req, 0)
}

func withBody(header string, n int) string {
	return header + "\r\n" + strings.Repeat("x", n)
}

func TestContentLengthBounds(t *testing.T) {
	const header = "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n"

	resp, err := read(t, withBody(header, 100), http.MethodPost)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 100)
	assert.False(t, resp.Close)

	resp, err = read(t, withBody(header, 50), http.MethodPost)
	assert.ErrorIs(t, err, ErrResponseTooShort)
	require.NotNil(t, resp)
	assert.True(t, resp.Close)

	for _, n := range []int{101, 150} {
		_, err = read(t, withBody(header, n), http.MethodPost)
		assert.ErrorIs(t, err, ErrResponseTooLarge, "%d bytes", n)
	}
}

func TestShortBodyReadError(t *testing.T) {
	raw := withBody("HTTP/1.1 200 OK\r\nContent-Length: 100\r\n", 50)
	src := io.MultiReader(strings.NewReader(raw), iotest.ErrReader(os.ErrDeadlineExceeded))

	req, _ := http.NewRequest(http.MethodGet, "https://core/x", nil)
	resp, err := ReadResponse(bufio.NewReader(src), req, 0)
	assert.ErrorIs(t, err, ErrResponseTooShort)
	assert.NotErrorIs(t, err, ErrConnectionLost)
	require.NotNil(t, resp)
	assert.True(t, resp.Close)
}

func TestUndeclaredLengthBound(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nConnection: close\r\n\r\n" + strings.Repeat("y", 64)

	req, _ := http.NewRequest(http.MethodGet, "https://core/x", nil)
	resp, err := ReadResponse(bufio.NewReader(strings.NewReader(raw)), req, 64)
	require.NoError(t, err)
	assert.Len(t, resp.Body, 64)
	assert.True(t, resp.Close)

	_, err = ReadResponse(bufio.NewReader(strings.NewReader(raw)), req, 63)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestChunkedBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	resp, err := read(t, raw, http.MethodGet)
	require.NoError(t, err)
	assert.Equal(t, "hello world", resp.Text())
	assert.False(t, resp.Close)
}

func TestHeadResponse(t *testing.T) {
	resp, err := read(t, "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\n", http.MethodHead)
	require.NoError(t, err)
	assert.Empty(t, resp.Body)
}

func TestStatusClassification(t *testing.T) {
	cases := []struct {
		status   string
		sentinel error
	}{
		{"401 Unauthorized", ErrUnauthorized},
		{"503 Service Unavailable", ErrServiceUnavailable},
		{"504 Gateway Timeout", ErrGatewayTimeout},
		{"500 Internal Server Error", nil},
		{"204 No Content", nil},
		{"404 Not Found", nil},
	}
	sentinels := []error{ErrUnauthorized, ErrServiceUnavailable, ErrGatewayTimeout}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			raw := "HTTP/1.1 " + tc.status + "\r\nX-Reason: test\r\nSet-Cookie: s=1\r\nContent-Length: 4\r\n\r\nnope"
			resp, err := read(t, raw, http.MethodPost)
			require.Error(t, err)

			var he *HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, "test", he.Header.Get("X-Reason"))
			assert.Equal(t, tc.status, he.Status)

			for _, s := range sentinels {
				assert.Equal(t, s == tc.sentinel, errors.Is(err, s), "%v", s)
			}
			assert.Empty(t, resp.Cookie, "cookies are only taken from 200 responses")
		})
	}

	_, err := read(t, "HTTP/1.1 404 Not Found\r\nContent-Length: 4\r\n\r\nnope", http.MethodGet)
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, 404, he.StatusCode)
	assert.Equal(t, []byte("nope"), he.Body)
	assert.Contains(t, he.Error(), "404")
}

func TestCookie(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nSet-Cookie: JSESSIONID=abc123; Path=/; Secure; HttpOnly\r\nContent-Length: 2\r\n\r\nok"
	resp, err := read(t, raw, http.MethodPost)
	require.NoError(t, err)
	assert.Equal(t, "JSESSIONID=abc123", resp.Cookie)

	resp, err = read(t, "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok", http.MethodPost)
	require.NoError(t, err)
	assert.Empty(t, resp.Cookie)
}

func TestDecodeBody(t *testing.T) {
	assert.Equal(t, "grüße", decodeBody([]byte("grüße")))
	// "caf\xe9" is Latin-1 for "café"
	assert.Equal(t, "café", decodeBody([]byte{'c', 'a', 'f', 0xe9}))
	assert.Equal(t, "", decodeBody(nil))
}

func TestMalformedStatusLine(t *testing.T) {
	_, err := read(t, "garbage\r\n\r\n", http.MethodGet)
	assert.ErrorIs(t, err, ErrConnectionLost)

	_, err = read(t, "", http.MethodGet)
	assert.ErrorIs(t, err, ErrConnectionLost)
}
