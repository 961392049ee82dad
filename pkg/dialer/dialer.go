package dialer

import (
	"context"
	"net"
)

// Dialer opens the TCP connection to the first hop of a transport path:
// the proxy or relay, or the server itself for the direct path.
type Dialer interface {
	Dial(ctx context.Context, addr string) (net.Conn, error)
}

type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

func (f DialFunc) Dial(ctx context.Context, addr string) (net.Conn, error) {
	return f(ctx, addr)
}
