package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/hostlink/uplink/pkg/client"
)

var (
	ErrInvalidHeader = errors.New("invalid header")
)

type stringList []string

func (l *stringList) String() string {
	return fmt.Sprintf("%s", *l)
}
func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}

func buildHeader(list stringList) (http.Header, error) {
	header := http.Header{}
	for _, s := range list {
		k, v, ok := strings.Cut(s, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidHeader, s)
		}
		header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return header, nil
}

func buildBody(s string) ([]byte, error) {
	if name, ok := strings.CutPrefix(s, "@"); ok {
		return os.ReadFile(name)
	}
	if s == "" {
		return nil, nil
	}
	return []byte(s), nil
}

// errorKind names the class of a request error for the log.
func errorKind(err error) string {
	var he *client.HTTPError
	switch {
	case errors.Is(err, client.ErrNetworkUnavailable):
		return "network_unavailable"
	case errors.Is(err, client.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, client.ErrServiceUnavailable):
		return "service_unavailable"
	case errors.Is(err, client.ErrGatewayTimeout):
		return "gateway_timeout"
	case errors.Is(err, client.ErrResponseTooLarge):
		return "response_too_large"
	case errors.Is(err, client.ErrResponseTooShort):
		return "response_too_short"
	case errors.As(err, &he):
		return "http_error"
	}
	return "error"
}
