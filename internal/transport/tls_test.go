package transport

import (
	"os"
	"path/filepath"
	"testing"
)

func TestTLSConfigBuildEmpty(t *testing.T) {
	cfg, err := (&TLSConfig{SkipVerify: true, ServerName: "riak.local"}).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("expected InsecureSkipVerify to be set")
	}
	if cfg.ServerName != "riak.local" {
		t.Errorf("ServerName = %q, want riak.local", cfg.ServerName)
	}
}

func TestTLSConfigBuildMissingCert(t *testing.T) {
	_, err := (&TLSConfig{
		CertificatePath:    "/nonexistent/client.crt",
		CertificateKeyPath: "/nonexistent/client.key",
	}).Build()
	if err == nil {
		t.Fatal("expected error for missing certificate files")
	}
}

func TestTLSConfigBuildBadCACert(t *testing.T) {
	caPath := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(caPath, []byte("not a certificate"), 0o644); err != nil {
		t.Fatalf("writing CA file: %v", err)
	}

	_, err := (&TLSConfig{CACertPath: caPath}).Build()
	if err == nil {
		t.Fatal("expected error for unparsable CA certificate")
	}
}

func TestTLSConfigBuildMissingCACert(t *testing.T) {
	_, err := (&TLSConfig{CACertPath: "/nonexistent/ca.pem"}).Build()
	if err == nil {
		t.Fatal("expected error for missing CA file")
	}
}
