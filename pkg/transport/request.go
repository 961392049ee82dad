package transport

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request is an immutable request description. It is bound to a base URL
// only when it is sent, so the same value can be retried on another
// server URL or path.
type Request struct {
	method string
	path   string
	header http.Header
	body   []byte
}

// NewRequest copies header and body. An empty method means POST when a
// body is given and GET otherwise.
func NewRequest(method, path string, header http.Header, body []byte) *Request {
	if method == "" {
		method = http.MethodGet
		if len(body) > 0 {
			method = http.MethodPost
		}
	}
	var b []byte
	if len(body) > 0 {
		b = bytes.Clone(body)
	}
	return &Request{
		method: strings.ToUpper(method),
		path:   path,
		header: header.Clone(),
		body:   b,
	}
}

func (r *Request) Method() string { return r.method }
func (r *Request) Path() string   { return r.path }

func (r *Request) Header() http.Header {
	return r.header.Clone()
}

func (r *Request) Body() []byte {
	return bytes.Clone(r.body)
}

// URL resolves the request path below the path prefix of base.
func (r *Request) URL(base *url.URL) (*url.URL, error) {
	ref, err := url.Parse(r.path)
	if err != nil {
		return nil, fmt.Errorf("request path %q: %w", r.path, err)
	}
	if ref.IsAbs() || ref.Host != "" {
		return nil, fmt.Errorf("request path %q: must be relative", r.path)
	}
	u := *base
	u.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(ref.Path, "/")
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	u.Fragment = ""
	return &u, nil
}

// HTTPRequest builds the wire request for base, carrying cookie if set.
func (r *Request) HTTPRequest(base *url.URL, cookie string) (*http.Request, error) {
	u, err := r.URL(base)
	if err != nil {
		return nil, err
	}

	req := &http.Request{
		Method:        r.method,
		URL:           u,
		Host:          u.Host,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        r.header.Clone(),
		ContentLength: int64(len(r.body)),
	}
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	if len(r.body) > 0 {
		req.Body = io.NopCloser(bytes.NewReader(r.body))
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	return req, nil
}
