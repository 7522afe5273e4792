package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// TLSConfig contains paths to PEM material for HTTPS connections.
type TLSConfig struct {
	// CertificatePath contains the path to the client certificate (.crt or .pem file).
	CertificatePath string
	// CertificateKeyPath contains the path to the certificate key (.key file).
	CertificateKeyPath string
	// CACertPath is the path to a CA certificate (.crt or .pem file).
	CACertPath string
	// SkipVerify disables verification of server certificates.
	SkipVerify bool
	// ServerName overrides the expected server name during verification.
	ServerName string
}

// Build loads the referenced files into a tls.Config usable by an HTTP client.
func (c *TLSConfig) Build() (*tls.Config, error) {
	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify,
		ServerName:         c.ServerName,
	}

	if c.CertificatePath != "" {
		cert, err := tls.LoadX509KeyPair(c.CertificatePath, c.CertificateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("loading client key pair: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if c.CACertPath != "" {
		pem, err := os.ReadFile(c.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("reading CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("no certificates parsed from CA file")
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
