// Package riak is a client for the Riak key-value store's HTTP interface.
// It covers connection configuration, bucket enumeration, liveness
// checking and map/reduce job construction. All operations are synchronous
// JSON-over-HTTP exchanges; a Client holds no server state and multiple
// clients are fully independent.
package riak

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/riakgo/riakgo/internal/shared/logging"
	"github.com/riakgo/riakgo/internal/transport"
)

// Client holds connection configuration and quorum defaults and acts as
// the factory for buckets and map/reduce jobs.
//
// The configuration is immutable after construction except through the
// explicit setters; a Client is safe for concurrent reads but the setters
// are not meant for concurrent use.
type Client struct {
	config    Config
	transport *transport.Transport
	logger    logging.Logger

	clientID string
	r        int
	w        int
	dw       int
}

// NewClient builds a Client from cfg, applying defaults to every empty
// field. A random client ID is generated when none is configured.
func NewClient(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := logging.FromSlog(cfg.Logger)

	var metrics *transport.Metrics
	if cfg.Metrics != nil {
		metrics = transport.NewMetrics(cfg.Metrics)
	}

	var tlsCfg *transport.TLSConfig
	if cfg.TLS != nil {
		tlsCfg = &transport.TLSConfig{
			CertificatePath:    cfg.TLS.CertificatePath,
			CertificateKeyPath: cfg.TLS.CertificateKeyPath,
			CACertPath:         cfg.TLS.CACertPath,
			SkipVerify:         cfg.TLS.SkipVerify,
			ServerName:         cfg.TLS.ServerName,
		}
	}

	t, err := transport.New(transport.Options{
		Scheme:       cfg.Scheme,
		Host:         cfg.Host,
		Port:         cfg.Port,
		Prefix:       cfg.Prefix,
		MapredPrefix: cfg.MapredPrefix,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Timeout:      cfg.RequestTimeout,
		TLS:          tlsCfg,
		HTTPClient:   cfg.HTTPClient,
		Logger:       logger,
		Metrics:      metrics,
	})
	if err != nil {
		return nil, err
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	return &Client{
		config:    cfg,
		transport: t,
		logger:    logger,
		clientID:  clientID,
		r:         cfg.R,
		w:         cfg.W,
		dw:        cfg.DW,
	}, nil
}

// Config returns the configuration the client was built with, after
// defaulting. Quorum values and client ID reflect construction time, not
// later setter calls.
func (c *Client) Config() Config { return c.config }

// R returns the default read quorum.
func (c *Client) R() int { return c.r }

// SetR sets the default read quorum and returns the client for chaining.
func (c *Client) SetR(r int) *Client {
	c.r = r
	return c
}

// W returns the default write quorum.
func (c *Client) W() int { return c.w }

// SetW sets the default write quorum and returns the client for chaining.
func (c *Client) SetW(w int) *Client {
	c.w = w
	return c
}

// DW returns the default durable-write quorum.
func (c *Client) DW() int { return c.dw }

// SetDW sets the default durable-write quorum and returns the client for chaining.
func (c *Client) SetDW(dw int) *Client {
	c.dw = dw
	return c
}

// ClientID returns the client identifier sent with every request.
func (c *Client) ClientID() string { return c.clientID }

// SetClientID sets the client identifier and returns the client for chaining.
func (c *Client) SetClientID(id string) *Client {
	c.clientID = id
	return c
}

// Bucket returns a proxy for the named bucket. Buckets are implicit in
// Riak, so this never fails and performs no server check.
func (c *Client) Bucket(name string) *Bucket {
	return &Bucket{name: name, client: c}
}

// Buckets lists all buckets known to the server.
func (c *Client) Buckets(ctx context.Context) ([]*Bucket, error) {
	u := c.transport.BuildRestPath("", "") + "?buckets=true"
	status, body, err := c.request(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, &TransportError{Op: "list buckets", URL: u, Err: err}
	}
	if status != http.StatusOK {
		return nil, &TransportError{Op: "list buckets", URL: u, StatusCode: status}
	}

	var payload struct {
		Buckets []string `json:"buckets"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ProtocolError{Op: "list buckets", Reason: "malformed bucket listing", Err: err}
	}

	buckets := make([]*Bucket, 0, len(payload.Buckets))
	for _, name := range payload.Buckets {
		buckets = append(buckets, c.Bucket(name))
	}
	return buckets, nil
}

// IsAlive probes the server's ping endpoint. It reports true only for an
// HTTP 200 response with body exactly "OK"; transport errors are swallowed
// and reported as not alive.
func (c *Client) IsAlive(ctx context.Context) bool {
	u := c.transport.PingPath()
	status, body, err := c.request(ctx, http.MethodGet, u, nil, nil)
	return err == nil && status == http.StatusOK && string(body) == "OK"
}

// ServerStats fetches the node statistics document from the stats endpoint.
func (c *Client) ServerStats(ctx context.Context) (map[string]any, error) {
	u := c.transport.StatsPath()
	status, body, err := c.request(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, &TransportError{Op: "server stats", URL: u, Err: err}
	}
	if status != http.StatusOK {
		return nil, &TransportError{Op: "server stats", URL: u, StatusCode: status}
	}

	var stats map[string]any
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, &ProtocolError{Op: "server stats", Reason: "malformed stats document", Err: err}
	}
	return stats, nil
}

// NewJob returns an empty map/reduce job bound to this client.
func (c *Client) NewJob() *MapReduceJob {
	return &MapReduceJob{client: c}
}

// MapJob returns a new job with a single map phase.
func (c *Client) MapJob(fn PhaseFunction, arg any, keep bool) *MapReduceJob {
	return c.NewJob().AddMap(fn, arg, keep)
}

// ReduceJob returns a new job with a single reduce phase.
func (c *Client) ReduceJob(fn PhaseFunction, arg any, keep bool) *MapReduceJob {
	return c.NewJob().AddReduce(fn, arg, keep)
}

// LinkJob returns a new job with a single link phase.
func (c *Client) LinkJob(bucket, tag string, keep bool) *MapReduceJob {
	return c.NewJob().AddLink(bucket, tag, keep)
}

// SearchJob returns a new job whose inputs come from a search query
// against the given bucket.
func (c *Client) SearchJob(bucket, query string) *MapReduceJob {
	return c.NewJob().SetSearchQuery(bucket, query)
}

// request performs one HTTP exchange through the transport, attaching the
// client ID header.
func (c *Client) request(ctx context.Context, method, url string, body []byte, headers map[string]string) (int, []byte, error) {
	h := make(map[string]string, len(headers)+1)
	h["X-Riak-ClientId"] = c.clientID
	for k, v := range headers {
		h[k] = v
	}
	return c.transport.Do(ctx, method, url, body, h)
}
