package riak

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// mapredServer returns a client wired to a test server that records the
// last map/reduce request body and replies with the given status and body.
func mapredServer(t *testing.T, status int, response string) (*Client, *[]byte) {
	t.Helper()

	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("reading request body: %v", err)
		}
		captured = body
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return newTestClient(t, srv), &captured
}

// jobDocument is the wire shape of a serialized job, used for assertions.
type jobDocument struct {
	Inputs  json.RawMessage  `json:"inputs"`
	Query   []map[string]any `json:"query"`
	Timeout int64            `json:"timeout"`
}

func decodeJobDocument(t *testing.T, body []byte) jobDocument {
	t.Helper()
	var doc jobDocument
	require.NoError(t, json.Unmarshal(body, &doc))
	return doc
}

func TestRunPreservesPhaseOrder(t *testing.T) {
	client, captured := mapredServer(t, http.StatusOK, `[]`)

	_, err := client.NewJob().
		SetBucketInput("logs").
		AddMap(JSNamed("Riak.mapValuesJson"), nil, false).
		AddReduce(Erlang("riak_kv_mapreduce", "reduce_sort"), nil, true).
		Run(context.Background())
	require.NoError(t, err)

	doc := decodeJobDocument(t, *captured)
	require.Len(t, doc.Query, 2)
	require.Contains(t, doc.Query[0], "map")
	require.Contains(t, doc.Query[1], "reduce")

	var bucket string
	require.NoError(t, json.Unmarshal(doc.Inputs, &bucket))
	require.Equal(t, "logs", bucket)
}

func TestRunSerializesKeyInputs(t *testing.T) {
	client, captured := mapredServer(t, http.StatusOK, `[]`)

	_, err := client.NewJob().
		AddInput("users", "u1").
		AddInputs(KeyInput{Bucket: "users", Key: "u2", KeyData: map[string]any{"weight": 2}}).
		AddMap(JSNamed("Riak.mapValues"), nil, true).
		Run(context.Background())
	require.NoError(t, err)

	doc := decodeJobDocument(t, *captured)

	var inputs [][]any
	require.NoError(t, json.Unmarshal(doc.Inputs, &inputs))
	require.Len(t, inputs, 2)
	require.Equal(t, []any{"users", "u1"}, inputs[0])
	require.Len(t, inputs[1], 3)
	require.Equal(t, "u2", inputs[1][1])
}

func TestRunSerializesSearchInputs(t *testing.T) {
	client, captured := mapredServer(t, http.StatusOK, `[]`)

	_, err := client.
		SearchJob("posts", "title:riak").
		AddMap(JSNamed("Riak.mapValuesJson"), nil, true).
		Run(context.Background())
	require.NoError(t, err)

	doc := decodeJobDocument(t, *captured)

	var inputs struct {
		Module   string   `json:"module"`
		Function string   `json:"function"`
		Arg      []string `json:"arg"`
	}
	require.NoError(t, json.Unmarshal(doc.Inputs, &inputs))
	require.Equal(t, "riak_search", inputs.Module)
	require.Equal(t, "mapred_search", inputs.Function)
	require.Equal(t, []string{"posts", "title:riak"}, inputs.Arg)
}

func TestRunSerializesTimeout(t *testing.T) {
	client, captured := mapredServer(t, http.StatusOK, `[]`)

	_, err := client.
		MapJob(JSNamed("Riak.mapValues"), nil, true).
		SetBucketInput("logs").
		SetTimeout(90 * time.Second).
		Run(context.Background())
	require.NoError(t, err)

	doc := decodeJobDocument(t, *captured)
	require.Equal(t, int64(90000), doc.Timeout)
}

func TestRunPhaseArgAndKeepSerialized(t *testing.T) {
	client, captured := mapredServer(t, http.StatusOK, `[]`)

	_, err := client.NewJob().
		SetBucketInput("logs").
		AddMap(JSSource("function(v) { return [v]; }"), map[string]any{"limit": 10}, true).
		Run(context.Background())
	require.NoError(t, err)

	doc := decodeJobDocument(t, *captured)
	require.Len(t, doc.Query, 1)

	inner, ok := doc.Query[0]["map"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "javascript", inner["language"])
	require.Equal(t, true, inner["keep"])
	require.NotNil(t, inner["arg"])
}

func TestRunWithoutPhases(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[]`)

	job := client.NewJob().SetBucketInput("logs")
	_, err := job.Run(context.Background())

	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestRunWithoutInputs(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[]`)

	job := client.MapJob(JSNamed("Riak.mapValues"), nil, true)
	_, err := job.Run(context.Background())

	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestMutationAfterRunFails(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[]`)

	tests := []struct {
		name   string
		mutate func(*MapReduceJob) *MapReduceJob
	}{
		{"add map phase", func(j *MapReduceJob) *MapReduceJob { return j.AddMap(JSNamed("f"), nil, false) }},
		{"add reduce phase", func(j *MapReduceJob) *MapReduceJob { return j.AddReduce(JSNamed("f"), nil, false) }},
		{"add link phase", func(j *MapReduceJob) *MapReduceJob { return j.AddLink("b", "t", false) }},
		{"add inputs", func(j *MapReduceJob) *MapReduceJob { return j.AddInput("b", "k") }},
		{"set bucket input", func(j *MapReduceJob) *MapReduceJob { return j.SetBucketInput("b") }},
		{"set search query", func(j *MapReduceJob) *MapReduceJob { return j.SetSearchQuery("b", "q") }},
		{"set timeout", func(j *MapReduceJob) *MapReduceJob { return j.SetTimeout(time.Second) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finalized := client.
				MapJob(JSNamed("Riak.mapValues"), nil, true).
				SetBucketInput("logs")
			_, err := finalized.Run(context.Background())
			require.NoError(t, err)

			var stateErr *InvalidStateError
			require.ErrorAs(t, tt.mutate(finalized).Err(), &stateErr)
		})
	}
}

func TestRunTwiceFails(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[]`)

	job := client.
		MapJob(JSNamed("Riak.mapValues"), nil, true).
		SetBucketInput("logs")
	_, err := job.Run(context.Background())
	require.NoError(t, err)

	_, err = job.Run(context.Background())
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestInputExclusivity(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[]`)

	tests := []struct {
		name  string
		build func() *MapReduceJob
	}{
		{"search after keys", func() *MapReduceJob {
			return client.NewJob().AddInput("b", "k").SetSearchQuery("b", "q")
		}},
		{"keys after search", func() *MapReduceJob {
			return client.NewJob().SetSearchQuery("b", "q").AddInput("b", "k")
		}},
		{"search after bucket", func() *MapReduceJob {
			return client.NewJob().SetBucketInput("b").SetSearchQuery("b", "q")
		}},
		{"bucket after keys", func() *MapReduceJob {
			return client.NewJob().AddInput("b", "k").SetBucketInput("b")
		}},
		{"keys after bucket", func() *MapReduceJob {
			return client.NewJob().SetBucketInput("b").AddInput("b", "k")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stateErr *InvalidStateError
			require.ErrorAs(t, tt.build().Err(), &stateErr)
		})
	}
}

func TestBuilderErrorSticksThroughRun(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[]`)

	job := client.NewJob().
		AddInput("b", "k").
		SetSearchQuery("b", "q"). // conflicting inputs
		AddMap(JSNamed("Riak.mapValues"), nil, true)

	_, err := job.Run(context.Background())
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
}

func TestResultsSingleKeptPhase(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[{"count":1},{"count":2},{"count":3}]`)

	results, err := client.
		MapJob(JSNamed("Riak.mapValuesJson"), nil, true).
		SetBucketInput("logs").
		Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	require.Len(t, results[0].Records, 3)
}

func TestResultsNoKeptPhaseDefaultsToFinal(t *testing.T) {
	// The server returns the final phase output when nothing is kept.
	client, _ := mapredServer(t, http.StatusOK, `[42]`)

	results, err := client.NewJob().
		SetBucketInput("logs").
		AddMap(JSNamed("Riak.mapValues"), nil, false).
		AddReduce(Erlang("riak_kv_mapreduce", "reduce_count_inputs"), nil, false).
		Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 1)
	require.Len(t, results[0].Records, 1)
}

func TestResultsMultipleKeptPhases(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[[1,2,3],[6]]`)

	results, err := client.NewJob().
		SetBucketInput("logs").
		AddMap(JSNamed("Riak.mapValuesJson"), nil, true).
		AddReduce(JSNamed("Riak.reduceSum"), nil, true).
		Run(context.Background())
	require.NoError(t, err)

	require.Len(t, results, 2)
	require.Len(t, results[0].Records, 3)
	require.Len(t, results[1].Records, 1)
}

func TestResultsKeptPhaseCountMismatch(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `[[1],[2],[3]]`)

	_, err := client.NewJob().
		SetBucketInput("logs").
		AddMap(JSNamed("Riak.mapValuesJson"), nil, true).
		AddReduce(JSNamed("Riak.reduceSum"), nil, true).
		Run(context.Background())

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestRunMalformedResponse(t *testing.T) {
	client, _ := mapredServer(t, http.StatusOK, `{"not":"an array"`)

	_, err := client.
		MapJob(JSNamed("Riak.mapValues"), nil, true).
		SetBucketInput("logs").
		Run(context.Background())

	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
}

func TestRunServerError(t *testing.T) {
	client, _ := mapredServer(t, http.StatusInternalServerError, `{"error":"worker crash"}`)

	_, err := client.
		MapJob(JSNamed("Riak.mapValues"), nil, true).
		SetBucketInput("logs").
		Run(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
}

func TestRunConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := newTestClient(t, srv)
	srv.Close()

	_, err := client.
		MapJob(JSNamed("Riak.mapValues"), nil, true).
		SetBucketInput("logs").
		Run(context.Background())

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Zero(t, transportErr.StatusCode)
	require.Error(t, errors.Unwrap(transportErr))
}

func TestPhaseFunctionSpecs(t *testing.T) {
	tests := []struct {
		name    string
		fn      PhaseFunction
		want    map[string]any
		wantErr bool
	}{
		{
			name: "named javascript",
			fn:   JSNamed("Riak.mapValuesJson"),
			want: map[string]any{"language": "javascript", "name": "Riak.mapValuesJson"},
		},
		{
			name: "inline javascript",
			fn:   JSSource("function(v) { return []; }"),
			want: map[string]any{"language": "javascript", "source": "function(v) { return []; }"},
		},
		{
			name: "stored javascript",
			fn:   JSStored("functions", "mapper"),
			want: map[string]any{"language": "javascript", "bucket": "functions", "key": "mapper"},
		},
		{
			name: "erlang",
			fn:   Erlang("riak_kv_mapreduce", "map_object_value"),
			want: map[string]any{"language": "erlang", "module": "riak_kv_mapreduce", "function": "map_object_value"},
		},
		{
			name:    "empty",
			fn:      PhaseFunction{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn.spec()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestLinkPhaseWildcards(t *testing.T) {
	spec, err := LinkPhase{}.spec()
	require.NoError(t, err)

	inner, ok := spec["link"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "_", inner["bucket"])
	require.Equal(t, "_", inner["tag"])
	require.Equal(t, false, inner["keep"])
}
