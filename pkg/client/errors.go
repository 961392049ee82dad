package client

import (
	"errors"

	"github.com/hostlink/uplink/pkg/transport"
)

var (
	ErrNetworkUnavailable = transport.ErrNetworkUnavailable
	ErrUnauthorized       = transport.ErrUnauthorized
	ErrServiceUnavailable = transport.ErrServiceUnavailable
	ErrGatewayTimeout     = transport.ErrGatewayTimeout
	ErrResponseTooLarge   = transport.ErrResponseTooLarge
	ErrResponseTooShort   = transport.ErrResponseTooShort
	ErrProxyAuthExhausted = transport.ErrProxyAuthExhausted

	// ErrNoServerURL means neither url nor policy_urls is configured.
	ErrNoServerURL = errors.New("no server url configured")
)

// HTTPError carries the status, headers and body of a non-200 response.
type HTTPError = transport.HTTPError
