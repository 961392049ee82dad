package path

import (
	"net"
	"strconv"
)

// Source records where a candidate path came from.
type Source string

const (
	SourceRelay  Source = "relay"
	SourcePolicy Source = "policy"
	SourceSystem Source = "system"
	SourceEnv    Source = "env"
	SourceDirect Source = "direct"
)

// TransportPath is one way of reaching the server: through a proxy or
// relay at Host:Port, or directly when Host is empty.
type TransportPath struct {
	Host     string
	Port     int
	RelayID  string
	Username string
	Password string
	Source   Source
}

func Direct() *TransportPath {
	return &TransportPath{Source: SourceDirect}
}

func (p *TransportPath) IsDirect() bool {
	return p == nil || p.Host == ""
}

func (p *TransportPath) IsRelay() bool {
	return p != nil && p.Source == SourceRelay
}

// Addr is the proxy address, empty for the direct path.
func (p *TransportPath) Addr() string {
	if p.IsDirect() {
		return ""
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// Key identifies a path for de-duplication. Only host and port count.
func (p *TransportPath) Key() string {
	if p.IsDirect() {
		return "direct"
	}
	return p.Addr()
}

// Equal reports whether p and o lead through the same host and port.
func (p *TransportPath) Equal(o *TransportPath) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Key() == o.Key()
}

// ID is the identifier persisted as the last good path.
func (p *TransportPath) ID() string {
	if p != nil && p.RelayID != "" {
		return p.RelayID
	}
	return p.Key()
}

// Kind names the path type for logs and metrics.
func (p *TransportPath) Kind() string {
	switch {
	case p.IsDirect():
		return "direct"
	case p.IsRelay():
		return "relay"
	default:
		return "proxy"
	}
}

func (p *TransportPath) String() string {
	switch p.Kind() {
	case "direct":
		return "direct"
	case "relay":
		return "relay " + p.ID() + "@" + p.Addr()
	default:
		return string(p.Source) + " proxy " + p.Addr()
	}
}

// Find returns the index of the path equal to target, or -1.
func Find(paths []*TransportPath, target *TransportPath) int {
	if target == nil {
		return -1
	}
	for i, p := range paths {
		if p.Equal(target) {
			return i
		}
	}
	return -1
}

// FindID returns the index of the path whose ID is id, or -1.
func FindID(paths []*TransportPath, id string) int {
	if id == "" {
		return -1
	}
	for i, p := range paths {
		if p.ID() == id {
			return i
		}
	}
	return -1
}
