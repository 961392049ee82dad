// Package auth computes Proxy-Authorization values for CONNECT tunnels.
//
// An Authenticator is bound to one proxy, one set of credentials and one
// tunnel target. It answers Basic and Digest (RFC 2617) challenges and
// keeps the digest nonce state between requests, so it must live as long
// as the client that owns it.
package auth

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/xid"
)

var (
	// ErrUnsupportedQop is returned for a digest challenge whose qop
	// does not offer "auth". Retrying cannot help.
	ErrUnsupportedQop = errors.New("unsupported digest qop")
)

// Key identifies an Authenticator.
type Key struct {
	ProxyHost  string
	ProxyPort  int
	User       string
	Pass       string
	TargetHost string
	TargetPort int
}

type Authenticator struct {
	key    Key
	header string

	realm      string
	nonce      string
	lastNonce  string
	nonceCount int
	cnonce     string
	algorithm  string
	opaque     string

	newCnonce func() string
}

func New(key Key) *Authenticator {
	return &Authenticator{
		key: key,
		newCnonce: func() string {
			return xid.New().String()
		},
	}
}

func (a *Authenticator) Key() Key {
	return a.key
}

// AuthHeader returns the Proxy-Authorization value computed for the last
// challenge, or an empty string if no challenge was seen yet.
func (a *Authenticator) AuthHeader() string {
	return a.header
}

// NonceCount is the digest nonce-count sent with the current header.
func (a *Authenticator) NonceCount() int {
	return a.nonceCount
}

// CNonce is the client nonce used with the current server nonce.
func (a *Authenticator) CNonce() string {
	return a.cnonce
}

// UpdateAuthHeader answers the challenges of a 407 response. It reports
// true when a new header was produced and the request should be retried,
// and false when the challenge cannot be answered: no credentials, no
// supported scheme, or Basic credentials the proxy already refused.
func (a *Authenticator) UpdateAuthHeader(resp *http.Response) (bool, error) {
	if resp == nil || resp.StatusCode != http.StatusProxyAuthRequired {
		return false, nil
	}
	if a.key.User == "" {
		return false, nil
	}

	cs := ParseChallenges(resp.Header.Values("Proxy-Authenticate"))
	if c := find(cs, "digest"); c != nil {
		ok, err := a.digest(c)
		if ok || err != nil {
			return ok, err
		}
	}
	if find(cs, "basic") != nil {
		return a.basic(), nil
	}
	return false, nil
}

func (a *Authenticator) basic() bool {
	h := "Basic " + base64.StdEncoding.EncodeToString([]byte(a.key.User+":"+a.key.Pass))
	if h == a.header {
		// the proxy refused these exact credentials
		return false
	}
	a.header = h
	return true
}

func hashFunc(algorithm string) (func() hash.Hash, bool) {
	switch strings.ToUpper(algorithm) {
	case "", "MD5", "MD5-SESS":
		return md5.New, true
	case "SHA-256", "SHA-256-SESS":
		return sha256.New, true
	}
	return nil, false
}

func (a *Authenticator) digest(c *Challenge) (bool, error) {
	nonce := c.Params["nonce"]
	if nonce == "" {
		return false, nil
	}

	algorithm := c.Params["algorithm"]
	newHash, ok := hashFunc(algorithm)
	if !ok {
		return false, nil
	}
	if algorithm == "" {
		algorithm = "MD5"
	}

	var qop string
	if v, exists := c.Params["qop"]; exists {
		for _, s := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(s), "auth") {
				qop = "auth"
				break
			}
		}
		if qop == "" {
			return false, fmt.Errorf("%w: %q", ErrUnsupportedQop, v)
		}
	}

	if nonce != a.lastNonce {
		a.lastNonce = nonce
		a.nonceCount = 0
		a.cnonce = a.newCnonce()
	}
	a.nonceCount++
	a.nonce = nonce
	a.realm = c.Params["realm"]
	a.algorithm = algorithm
	a.opaque = c.Params["opaque"]

	h := func(s string) string {
		hh := newHash()
		hh.Write([]byte(s))
		return hex.EncodeToString(hh.Sum(nil))
	}

	uri := net.JoinHostPort(a.key.TargetHost, strconv.Itoa(a.key.TargetPort))
	sess := strings.HasSuffix(strings.ToUpper(algorithm), "-SESS")

	ha1 := h(a.key.User + ":" + a.realm + ":" + a.key.Pass)
	if sess {
		ha1 = h(ha1 + ":" + nonce + ":" + a.cnonce)
	}
	ha2 := h(http.MethodConnect + ":" + uri)
	nc := fmt.Sprintf("%08x", a.nonceCount)

	var response string
	if qop != "" {
		response = h(strings.Join([]string{ha1, nonce, nc, a.cnonce, qop, ha2}, ":"))
	} else {
		response = h(ha1 + ":" + nonce + ":" + ha2)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username="%s", realm="%s", nonce="%s", uri="%s", algorithm=%s, response="%s"`,
		quote(a.key.User), quote(a.realm), quote(nonce), uri, algorithm, response)
	if a.opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, quote(a.opaque))
	}
	if qop != "" {
		fmt.Fprintf(&b, `, qop=%s, nc=%s, cnonce="%s"`, qop, nc, a.cnonce)
	} else if sess {
		fmt.Fprintf(&b, `, cnonce="%s"`, a.cnonce)
	}
	a.header = b.String()

	return true, nil
}

func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// Cache keeps one Authenticator per Key for the lifetime of its owner.
// It is not safe for concurrent use.
type Cache struct {
	m map[Key]*Authenticator
}

func NewCache() *Cache {
	return &Cache{
		m: make(map[Key]*Authenticator),
	}
}

// Get returns the Authenticator for key, creating it on first use.
func (c *Cache) Get(key Key) *Authenticator {
	if a, ok := c.m[key]; ok {
		return a
	}
	a := New(key)
	c.m[key] = a
	return a
}

func (c *Cache) Len() int {
	return len(c.m)
}
