package path

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

var (
	ErrEmptyAddress = errors.New("empty proxy address")
	ErrMissingPort  = errors.New("missing proxy port")
)

// ParseProxy parses a proxy setting of the form
// [scheme://][user[:pass]@]host[:port]. A port is required unless the
// scheme implies one.
func ParseProxy(s string) (*TransportPath, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyAddress
	}
	if !strings.Contains(s, "://") {
		s = "proxy://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse proxy %q: %w", s, err)
	}

	host := u.Hostname()
	if host == "" {
		return nil, ErrEmptyAddress
	}

	var port int
	if sport := u.Port(); sport != "" {
		if port, err = parsePort(sport); err != nil {
			return nil, err
		}
	} else {
		switch strings.ToLower(u.Scheme) {
		case "http":
			port = 80
		case "https":
			port = 443
		default:
			return nil, fmt.Errorf("%w: %s", ErrMissingPort, host)
		}
	}

	p := &TransportPath{
		Host: host,
		Port: port,
	}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	return p, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}

// SplitHostPort is net.SplitHostPort with a numeric port and a default.
func SplitHostPort(addr string, defPort int) (string, int, error) {
	host, sport, err := net.SplitHostPort(addr)
	if err != nil {
		// no port
		return strings.Trim(addr, "[]"), defPort, nil
	}
	port, err := parsePort(sport)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
