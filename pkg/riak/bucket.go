package riak

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"
)

// Bucket is a proxy for a server-side bucket. It is created on demand and
// never validated against server state: buckets are implicit in Riak.
type Bucket struct {
	name   string
	client *Client
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Client returns the client the bucket was created from.
func (b *Bucket) Client() *Client { return b.client }

// Keys lists every key in the bucket. Key listing walks the whole
// keyspace server-side and is expensive on large clusters.
func (b *Bucket) Keys(ctx context.Context) ([]string, error) {
	u := b.client.transport.BuildRestPath(b.name, "") + "?keys=true&props=false"
	status, body, err := b.client.request(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, &TransportError{Op: "list keys", URL: u, Err: err}
	}
	if status != http.StatusOK {
		return nil, &TransportError{Op: "list keys", URL: u, StatusCode: status}
	}

	var payload struct {
		Keys []string `json:"keys"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &ProtocolError{Op: "list keys", Reason: "malformed key listing", Err: err}
	}
	return payload.Keys, nil
}

// FilterKeys lists the bucket's keys and returns those matching the glob
// pattern. Matching happens client-side; the full key listing is still
// fetched from the server.
func (b *Bucket) FilterKeys(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid key pattern: %s", pattern)
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]string, 0, len(keys))
	for _, key := range keys {
		ok, err := doublestar.Match(pattern, key)
		if err != nil {
			return nil, fmt.Errorf("matching key %q: %w", key, err)
		}
		if ok {
			matched = append(matched, key)
		}
	}
	return matched, nil
}

// BucketProperties are the server-side bucket settings reachable over the
// bucket properties resource.
type BucketProperties struct {
	NVal          int  `json:"n_val,omitempty"`
	AllowMult     bool `json:"allow_mult"`
	LastWriteWins bool `json:"last_write_wins"`
}

// Properties fetches the bucket's properties.
func (b *Bucket) Properties(ctx context.Context) (BucketProperties, error) {
	u := b.client.transport.BuildRestPath(b.name, "") + "?props=true&keys=false"
	status, body, err := b.client.request(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return BucketProperties{}, &TransportError{Op: "get bucket properties", URL: u, Err: err}
	}
	if status != http.StatusOK {
		return BucketProperties{}, &TransportError{Op: "get bucket properties", URL: u, StatusCode: status}
	}

	var payload struct {
		Props BucketProperties `json:"props"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return BucketProperties{}, &ProtocolError{Op: "get bucket properties", Reason: "malformed properties document", Err: err}
	}
	return payload.Props, nil
}

// SetProperties updates the bucket's properties.
func (b *Bucket) SetProperties(ctx context.Context, props BucketProperties) error {
	u := b.client.transport.BuildRestPath(b.name, "")
	body, err := json.Marshal(map[string]any{"props": props})
	if err != nil {
		return fmt.Errorf("serializing properties: %w", err)
	}

	headers := map[string]string{"Content-Type": "application/json"}
	status, _, err := b.client.request(ctx, http.MethodPut, u, body, headers)
	if err != nil {
		return &TransportError{Op: "set bucket properties", URL: u, Err: err}
	}
	if status != http.StatusNoContent && status != http.StatusOK {
		return &TransportError{Op: "set bucket properties", URL: u, StatusCode: status}
	}
	return nil
}
