package connector

import (
	"context"
	"net"
)

// Connector opens a tunnel to address through an intermediate hop.
// The returned connection carries the bytes of address end to end.
type Connector interface {
	Connect(ctx context.Context, address string, opts ...ConnectOption) (net.Conn, error)
}
