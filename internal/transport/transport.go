// Package transport issues HTTP requests against a Riak node's REST
// endpoint. It builds REST paths from connection settings and returns raw
// status/body pairs without interpreting status codes; callers decide
// success and failure semantics.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/riakgo/riakgo/internal/shared/logging"
)

const DefaultTimeout = 10 * time.Second

// Options configures a Transport.
type Options struct {
	Scheme       string
	Host         string
	Port         int
	Prefix       string
	MapredPrefix string

	Username string
	Password string

	Timeout time.Duration
	TLS     *TLSConfig

	// HTTPClient overrides the client built from Timeout and TLS.
	HTTPClient *http.Client

	Logger  logging.Logger
	Metrics *Metrics
}

// Transport performs HTTP exchanges against a single Riak node.
type Transport struct {
	scheme       string
	host         string
	port         int
	prefix       string
	mapredPrefix string

	username string
	password string

	client  *http.Client
	logger  logging.Logger
	metrics *Metrics
}

// New builds a Transport from the given options. It fails only when TLS
// material cannot be loaded.
func New(opts Options) (*Transport, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
		if opts.TLS != nil {
			tlsCfg, err := opts.TLS.Build()
			if err != nil {
				return nil, err
			}
			client.Transport = &http.Transport{TLSClientConfig: tlsCfg}
		}
	}

	return &Transport{
		scheme:       opts.Scheme,
		host:         opts.Host,
		port:         opts.Port,
		prefix:       opts.Prefix,
		mapredPrefix: opts.MapredPrefix,
		username:     opts.Username,
		password:     opts.Password,
		client:       client,
		logger:       logger,
		metrics:      opts.Metrics,
	}, nil
}

func (t *Transport) baseURL() string {
	return fmt.Sprintf("%s://%s:%d", t.scheme, t.host, t.port)
}

// BuildRestPath constructs the REST URL for a bucket and key. Both are
// optional; an empty bucket yields the bare prefix path used for bucket
// listing.
func (t *Transport) BuildRestPath(bucket, key string) string {
	u := t.baseURL() + "/" + t.prefix
	if bucket != "" {
		u += "/" + url.PathEscape(bucket)
	}
	if key != "" {
		u += "/" + url.PathEscape(key)
	}
	return u
}

// MapredPath returns the URL map/reduce jobs are posted to.
func (t *Transport) MapredPath() string {
	return t.baseURL() + "/" + t.mapredPrefix
}

// PingPath returns the liveness probe URL.
func (t *Transport) PingPath() string {
	return t.baseURL() + "/ping"
}

// StatsPath returns the node statistics URL.
func (t *Transport) StatsPath() string {
	return t.baseURL() + "/stats"
}

// Do performs a single HTTP exchange and returns the status code and the
// full response body. Connection, timeout and TLS failures surface as
// errors; any received status code is returned as-is.
func (t *Transport) Do(ctx context.Context, method, rawURL string, body []byte, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if t.username != "" {
		req.SetBasicAuth(t.username, t.password)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		t.metrics.observeError(method)
		t.logger.Error("Request failed", "method", method, "url", rawURL, "error", err)
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.metrics.observeError(method)
		return resp.StatusCode, nil, fmt.Errorf("reading response body: %w", err)
	}

	duration := time.Since(start)
	t.metrics.observe(method, resp.StatusCode, duration)
	t.logger.Debug(
		"Request completed",
		"method", method,
		"url", rawURL,
		"status", resp.StatusCode,
		"bytes", len(respBody),
		"duration", duration.String(),
	)

	return resp.StatusCode, respBody, nil
}
