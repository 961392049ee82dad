package dialer

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	d := NewNetDialer()
	assert.Equal(t, DefaultTimeout, d.Timeout)

	conn, err := d.Dial(context.Background(), addr)
	require.NoError(t, err)
	conn.Close()

	ln.Close()
	_, err = d.Dial(context.Background(), addr)
	assert.Error(t, err)
}

func TestDialFunc(t *testing.T) {
	var got string
	d := DialFunc(func(ctx context.Context, addr string) (net.Conn, error) {
		got = addr
		return nil, errors.New("refused")
	})
	_, err := d.Dial(context.Background(), "relay:443")
	assert.Error(t, err)
	assert.Equal(t, "relay:443", got)
}
