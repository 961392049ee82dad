package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultMaxBodySize bounds bodies that declare no Content-Length.
	DefaultMaxBodySize = 10 << 20
)

type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
	// Cookie is the name=value pair of Set-Cookie on a 200 response.
	Cookie string
	// Close is set when the connection cannot carry another request.
	Close bool
}

// Text decodes the body as UTF-8, or as Latin-1 when it is not valid UTF-8.
func (r *Response) Text() string {
	return decodeBody(r.Body)
}

// ReadResponse reads one response for req from br.
//
// The body is bounded by its Content-Length, or by maxBodySize when none
// is declared. A body that exceeds the bound, including bytes found after
// the declared length, fails with ErrResponseTooLarge. A body that ends
// before its declared length, by EOF or by the read deadline, fails with
// ErrResponseTooShort. Any status other than 200 fails
// with an *HTTPError. Failures to read the status line or headers are
// wrapped in ErrConnectionLost.
//
// The returned Response is non-nil whenever a status line was read.
func ReadResponse(br *bufio.Reader, req *http.Request, maxBodySize int64) (*Response, error) {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}

	resp, err := http.ReadResponse(br, req)
	if err != nil {
		return nil, connectionLost(err)
	}

	r := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Close:      resp.Close,
	}

	r.Body, err = readBody(resp, br, maxBodySize)
	if err != nil {
		// Closing the body would drain it; the connection is dropped instead.
		r.Close = true
		return r, err
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return r, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       r.Body,
		}
	}

	if v := resp.Header.Get("Set-Cookie"); v != "" {
		r.Cookie = cookiePair(v)
	}
	return r, nil
}

func readBody(resp *http.Response, br *bufio.Reader, maxBodySize int64) ([]byte, error) {
	if resp.Body == http.NoBody || (resp.Request != nil && resp.Request.Method == http.MethodHead) {
		return nil, nil
	}

	declared := resp.ContentLength >= 0
	bound := maxBodySize
	if declared {
		bound = resp.ContentLength
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, bound+1))
	if err != nil {
		// A truncated chunked body ends with io.ErrUnexpectedEOF as well.
		if declared || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: %d bytes read: %v", ErrResponseTooShort, len(body), err)
		}
		return nil, connectionLost(err)
	}
	if int64(len(body)) > bound {
		return nil, ErrResponseTooLarge
	}
	if declared {
		if int64(len(body)) < bound {
			return nil, ErrResponseTooShort
		}
		// Nothing may follow a complete response on the wire.
		if br != nil && br.Buffered() > 0 {
			return nil, ErrResponseTooLarge
		}
	}
	return body, nil
}

// cookiePair strips the attributes of a Set-Cookie value.
func cookiePair(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func decodeBody(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
