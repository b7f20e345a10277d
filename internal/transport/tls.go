// Package transport holds helpers shared by the upload transports.
package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var errNoCertificates = errors.New("no certificates found")

// TLSConfig builds a client TLS configuration. An empty caFile uses the
// system roots.
func TLSConfig(caFile string, insecureSkipVerify bool) (*tls.Config, error) {
	//nolint:gosec // Skipping verification is an explicit opt-in for lab brokers.
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecureSkipVerify,
	}

	if caFile == "" {
		return cfg, nil
	}

	pem, err := os.ReadFile(filepath.Clean(caFile))
	if err != nil {
		return nil, fmt.Errorf("read ca file: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%s: %w", caFile, errNoCertificates)
	}

	cfg.RootCAs = pool

	return cfg, nil
}
