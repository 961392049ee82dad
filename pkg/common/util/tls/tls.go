package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

const (
	DefaultMinVersion = tls.VersionTLS12
)

// ClientOptions selects how the server certificate is checked.
type ClientOptions struct {
	// CAFile adds a PEM bundle of trusted roots. The system pool is used
	// when it is empty.
	CAFile string
	// Verify enables certificate verification. With Verify false and a
	// CAFile, the chain is still checked against the CA but the host name
	// is not.
	Verify     bool
	ServerName string
	MinVersion uint16
}

// LoadClientConfig builds a client TLS config. Every client gets its own
// config value, nothing is shared between instances.
func LoadClientConfig(opts ClientOptions) (*tls.Config, error) {
	rootCAs, err := loadCA(opts.CAFile)
	if err != nil {
		return nil, err
	}

	cfg := &tls.Config{
		RootCAs:            rootCAs,
		ServerName:         opts.ServerName,
		InsecureSkipVerify: !opts.Verify,
		MinVersion:         opts.MinVersion,
	}
	if cfg.MinVersion == 0 {
		cfg.MinVersion = DefaultMinVersion
	}

	// If the root ca is given, but skip verify, we verify the certificate manually.
	if cfg.RootCAs != nil && !opts.Verify {
		cfg.VerifyConnection = func(state tls.ConnectionState) error {
			opts := x509.VerifyOptions{
				Roots:         cfg.RootCAs,
				CurrentTime:   time.Now(),
				Intermediates: x509.NewCertPool(),
			}

			certs := state.PeerCertificates
			if len(certs) == 0 {
				return errors.New("tls: no peer certificate")
			}
			for _, cert := range certs[1:] {
				opts.Intermediates.AddCert(cert)
			}

			_, err := certs[0].Verify(opts)
			return err
		}
	}

	return cfg, nil
}

func loadCA(caFile string) (cp *x509.CertPool, err error) {
	if caFile == "" {
		return
	}
	cp = x509.NewCertPool()
	data, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}
	if !cp.AppendCertsFromPEM(data) {
		return nil, errors.New("AppendCertsFromPEM failed")
	}
	return
}

// WrapTLSClient performs a client handshake on conn for serverName. The
// config is cloned so the caller's value is never modified. On error conn
// is closed.
func WrapTLSClient(ctx context.Context, conn net.Conn, cfg *tls.Config, serverName string, timeout time.Duration) (net.Conn, error) {
	if cfg == nil {
		cfg = &tls.Config{MinVersion: DefaultMinVersion}
	}
	cfg = cfg.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
		defer conn.SetDeadline(time.Time{})
	}

	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return tlsConn, nil
}
