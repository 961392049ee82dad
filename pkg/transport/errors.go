package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetworkUnavailable means no candidate path ever reached the server.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrUnauthorized matches a 401 HTTPError.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrServiceUnavailable matches a 503 HTTPError.
	ErrServiceUnavailable = errors.New("service unavailable")
	// ErrGatewayTimeout matches a 504 HTTPError.
	ErrGatewayTimeout = errors.New("gateway timeout")
	ErrResponseTooLarge = errors.New("response too large")
	ErrResponseTooShort = errors.New("response too short")
	// ErrProxyAuthExhausted means a 407 could not be answered.
	ErrProxyAuthExhausted = errors.New("proxy authentication exhausted")
	// ErrConnectionLost wraps low-level failures of an established
	// connection. The connection must be discarded; no response was read.
	ErrConnectionLost = errors.New("connection lost")
)

// HTTPError is a response whose status is not 200.
type HTTPError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("http error: %s", e.Status)
	}
	return fmt.Sprintf("http error: %d", e.StatusCode)
}

// Is lets errors.Is match the status sentinels.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrServiceUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable
	case ErrGatewayTimeout:
		return e.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

func connectionLost(err error) error {
	return fmt.Errorf("%w: %v", ErrConnectionLost, err)
}
