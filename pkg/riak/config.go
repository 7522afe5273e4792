package riak

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8098
	DefaultScheme       = "http"
	DefaultPrefix       = "riak"
	DefaultMapredPrefix = "mapred"

	// DefaultQuorum is the default R, W and DW value.
	DefaultQuorum = 2

	DefaultRequestTimeout = 10 * time.Second
)

// Config holds the connection settings for a Client. The zero value is
// usable: every empty field falls back to its default.
type Config struct {
	Host         string
	Port         int
	Scheme       string // "http" or "https"
	Prefix       string // REST prefix for bucket and object paths
	MapredPrefix string // REST prefix for map/reduce jobs

	// ClientID identifies this client to the server via the
	// X-Riak-ClientId header. Generated randomly when empty.
	ClientID string

	// R, W and DW are the default quorum values for reads, writes and
	// durable writes.
	R  int
	W  int
	DW int

	RequestTimeout time.Duration

	// Username and Password enable HTTP basic auth when set.
	Username string
	Password string

	TLS *TLSConfig

	// HTTPClient overrides the client built from RequestTimeout and TLS.
	HTTPClient *http.Client

	// Logger enables request logging. Nil disables it.
	Logger *slog.Logger

	// Metrics registers request counters and latency histograms with the
	// given registry. Nil disables collection.
	Metrics prometheus.Registerer
}

// TLSConfig contains paths to PEM material for HTTPS connections.
type TLSConfig struct {
	CertificatePath    string
	CertificateKeyPath string
	CACertPath         string
	SkipVerify         bool
	ServerName         string
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.MapredPrefix == "" {
		c.MapredPrefix = DefaultMapredPrefix
	}
	if c.R == 0 {
		c.R = DefaultQuorum
	}
	if c.W == 0 {
		c.W = DefaultQuorum
	}
	if c.DW == 0 {
		c.DW = DefaultQuorum
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

func (c Config) validate() error {
	if c.Scheme != "http" && c.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", c.Scheme)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.R <= 0 || c.W <= 0 || c.DW <= 0 {
		return fmt.Errorf("quorum values must be positive: r=%d w=%d dw=%d", c.R, c.W, c.DW)
	}
	return nil
}
