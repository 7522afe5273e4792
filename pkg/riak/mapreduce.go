package riak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type jobState int

const (
	jobStateEmpty jobState = iota
	jobStateAccumulating
	jobStateFinalized
)

type inputKind int

const (
	inputNone inputKind = iota
	inputBucket
	inputKeys
	inputSearch
)

// KeyInput names one object feeding a map/reduce job. KeyData, when set,
// is passed to the first phase alongside the object.
type KeyInput struct {
	Bucket  string
	Key     string
	KeyData any
}

// Result holds the output rows of one kept phase, in server order. Rows
// are raw JSON values; callers unmarshal them into whatever shape their
// phase functions emit.
type Result struct {
	Records []json.RawMessage
}

// MapReduceJob accumulates an ordered list of phases plus an input
// specification and submits them as a single map/reduce request. A job is
// owned by the caller that built it and must not be mutated concurrently.
//
// Builder methods return the job for chaining and record the first misuse
// instead of panicking; Run surfaces it. Once Run has been invoked the job
// is finalized and any further mutation fails with InvalidStateError.
type MapReduceJob struct {
	client *Client

	state  jobState
	phases []Phase

	inputs       inputKind
	inputBucket  string
	inputKeys    []KeyInput
	searchBucket string
	searchQuery  string

	timeout time.Duration

	err error
}

// Err returns the first builder misuse recorded on the job, if any.
func (j *MapReduceJob) Err() error { return j.err }

func (j *MapReduceJob) fail(op, reason string) *MapReduceJob {
	if j.err == nil {
		j.err = &InvalidStateError{Op: op, Reason: reason}
	}
	return j
}

func (j *MapReduceJob) mutable(op string) bool {
	if j.err != nil {
		return false
	}
	if j.state == jobStateFinalized {
		j.err = &InvalidStateError{Op: op, Reason: "job already executed"}
		return false
	}
	return true
}

// AddPhase appends a phase to the job. Phase order is preserved and
// determines server-side execution order.
func (j *MapReduceJob) AddPhase(p Phase) *MapReduceJob {
	if !j.mutable("add phase") {
		return j
	}
	j.phases = append(j.phases, p)
	j.state = jobStateAccumulating
	return j
}

// AddMap appends a map phase executing fn with the given static argument.
func (j *MapReduceJob) AddMap(fn PhaseFunction, arg any, keep bool) *MapReduceJob {
	return j.AddPhase(MapPhase{Function: fn, Arg: arg, Keep: keep})
}

// AddReduce appends a reduce phase executing fn with the given static argument.
func (j *MapReduceJob) AddReduce(fn PhaseFunction, arg any, keep bool) *MapReduceJob {
	return j.AddPhase(ReducePhase{Function: fn, Arg: arg, Keep: keep})
}

// AddLink appends a link-walking phase. Empty bucket or tag match anything.
func (j *MapReduceJob) AddLink(bucket, tag string, keep bool) *MapReduceJob {
	return j.AddPhase(LinkPhase{Bucket: bucket, Tag: tag, Keep: keep})
}

// SetBucketInput feeds every object in the bucket to the job.
func (j *MapReduceJob) SetBucketInput(bucket string) *MapReduceJob {
	if !j.mutable("set bucket input") {
		return j
	}
	if j.inputs == inputKeys || j.inputs == inputSearch {
		return j.fail("set bucket input", "job inputs already set")
	}
	j.inputs = inputBucket
	j.inputBucket = bucket
	return j
}

// AddInput appends one bucket/key pair to the job's input list.
func (j *MapReduceJob) AddInput(bucket, key string) *MapReduceJob {
	return j.AddInputs(KeyInput{Bucket: bucket, Key: key})
}

// AddInputs appends explicit key inputs. Key inputs cannot be combined
// with a bucket input or a search query.
func (j *MapReduceJob) AddInputs(inputs ...KeyInput) *MapReduceJob {
	if !j.mutable("add inputs") {
		return j
	}
	if j.inputs == inputBucket || j.inputs == inputSearch {
		return j.fail("add inputs", "job inputs already set")
	}
	j.inputs = inputKeys
	j.inputKeys = append(j.inputKeys, inputs...)
	return j
}

// SetSearchQuery feeds the job from a search query against the given
// bucket. A search query cannot be combined with bucket or key inputs.
func (j *MapReduceJob) SetSearchQuery(bucket, query string) *MapReduceJob {
	if !j.mutable("set search query") {
		return j
	}
	if j.inputs == inputBucket || j.inputs == inputKeys {
		return j.fail("set search query", "job inputs already set")
	}
	j.inputs = inputSearch
	j.searchBucket = bucket
	j.searchQuery = query
	return j
}

// SetTimeout sets the server-side job timeout. It is serialized as the
// job document's timeout field, in milliseconds.
func (j *MapReduceJob) SetTimeout(d time.Duration) *MapReduceJob {
	if !j.mutable("set timeout") {
		return j
	}
	j.timeout = d
	return j
}

func (j *MapReduceJob) body() ([]byte, error) {
	doc := make(map[string]any, 3)

	switch j.inputs {
	case inputBucket:
		doc["inputs"] = j.inputBucket
	case inputKeys:
		keys := make([][]any, 0, len(j.inputKeys))
		for _, in := range j.inputKeys {
			pair := []any{in.Bucket, in.Key}
			if in.KeyData != nil {
				pair = append(pair, in.KeyData)
			}
			keys = append(keys, pair)
		}
		doc["inputs"] = keys
	case inputSearch:
		doc["inputs"] = map[string]any{
			"module":   "riak_search",
			"function": "mapred_search",
			"arg":      []string{j.searchBucket, j.searchQuery},
		}
	}

	query := make([]map[string]any, 0, len(j.phases))
	for _, p := range j.phases {
		spec, err := p.spec()
		if err != nil {
			return nil, err
		}
		query = append(query, spec)
	}
	doc["query"] = query

	if j.timeout > 0 {
		doc["timeout"] = j.timeout.Milliseconds()
	}

	return json.Marshal(doc)
}

// Run serializes the job and submits it as one HTTP POST. The result
// sequence contains one entry per phase flagged keep, or a single entry
// when no phase (or only the final one) keeps its output.
//
// Run finalizes the job: it may not be mutated or run again afterwards.
func (j *MapReduceJob) Run(ctx context.Context) ([]Result, error) {
	if j.err != nil {
		return nil, j.err
	}
	if j.state == jobStateFinalized {
		return nil, &InvalidStateError{Op: "run", Reason: "job already executed"}
	}
	if len(j.phases) == 0 {
		return nil, &InvalidStateError{Op: "run", Reason: "job has no phases"}
	}
	if j.inputs == inputNone {
		return nil, &InvalidStateError{Op: "run", Reason: "job has no inputs"}
	}

	body, err := j.body()
	if err != nil {
		return nil, fmt.Errorf("serializing job: %w", err)
	}
	j.state = jobStateFinalized

	u := j.client.transport.MapredPath()
	headers := map[string]string{"Content-Type": "application/json"}
	status, respBody, err := j.client.request(ctx, http.MethodPost, u, body, headers)
	if err != nil {
		return nil, &TransportError{Op: "mapred", URL: u, Err: err}
	}
	if status != http.StatusOK {
		terr := &TransportError{Op: "mapred", URL: u, StatusCode: status}
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			terr.Err = errors.New(msg)
		}
		return nil, terr
	}

	return j.decodeResults(respBody)
}

func (j *MapReduceJob) decodeResults(body []byte) ([]Result, error) {
	kept := 0
	for _, p := range j.phases {
		if p.keepOutput() {
			kept++
		}
	}

	// With at most one kept phase the server responds with a flat array
	// of rows; with several it responds with one array per kept phase.
	if kept <= 1 {
		var rows []json.RawMessage
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, &ProtocolError{Op: "mapred", Reason: "malformed result set", Err: err}
		}
		return []Result{{Records: rows}}, nil
	}

	var sets [][]json.RawMessage
	if err := json.Unmarshal(body, &sets); err != nil {
		return nil, &ProtocolError{Op: "mapred", Reason: "malformed result sets", Err: err}
	}
	if len(sets) != kept {
		return nil, &ProtocolError{
			Op:     "mapred",
			Reason: fmt.Sprintf("expected %d result sets, got %d", kept, len(sets)),
		}
	}

	results := make([]Result, len(sets))
	for i, set := range sets {
		results[i] = Result{Records: set}
	}
	return results, nil
}
