package riak

import "errors"

const (
	languageJavascript = "javascript"
	languageErlang     = "erlang"
)

// PhaseFunction identifies the function a map or reduce phase executes.
// Exactly one of the four forms must be set: a named built-in JavaScript
// function, inline JavaScript source, a stored JavaScript function
// referenced by bucket/key, or an Erlang module/function pair.
type PhaseFunction struct {
	Name     string // named built-in, e.g. "Riak.mapValuesJson"
	Source   string // inline JavaScript source
	Bucket   string // location of a stored JavaScript function
	Key      string
	Module   string // Erlang module
	Function string // Erlang function
}

// JSNamed references a built-in JavaScript function by name.
func JSNamed(name string) PhaseFunction {
	return PhaseFunction{Name: name}
}

// JSSource embeds inline JavaScript source in the phase.
func JSSource(source string) PhaseFunction {
	return PhaseFunction{Source: source}
}

// JSStored references a JavaScript function stored as a Riak object.
func JSStored(bucket, key string) PhaseFunction {
	return PhaseFunction{Bucket: bucket, Key: key}
}

// Erlang references a compiled Erlang module/function pair.
func Erlang(module, function string) PhaseFunction {
	return PhaseFunction{Module: module, Function: function}
}

func (f PhaseFunction) spec() (map[string]any, error) {
	switch {
	case f.Name != "":
		return map[string]any{"language": languageJavascript, "name": f.Name}, nil
	case f.Source != "":
		return map[string]any{"language": languageJavascript, "source": f.Source}, nil
	case f.Bucket != "" && f.Key != "":
		return map[string]any{"language": languageJavascript, "bucket": f.Bucket, "key": f.Key}, nil
	case f.Module != "" && f.Function != "":
		return map[string]any{"language": languageErlang, "module": f.Module, "function": f.Function}, nil
	default:
		return nil, errors.New("phase function is empty")
	}
}

// Phase is one step of a map/reduce job. The three implementations are
// MapPhase, ReducePhase and LinkPhase; the server executes them in the
// order they were added to the job.
type Phase interface {
	// keepOutput reports whether the phase output is part of the
	// client-visible result set.
	keepOutput() bool

	// spec returns the wire form of the phase as one element of the
	// job's query array.
	spec() (map[string]any, error)
}

// MapPhase applies a function to every input object.
type MapPhase struct {
	Function PhaseFunction
	Arg      any // optional static argument passed to every invocation
	Keep     bool
}

func (p MapPhase) keepOutput() bool { return p.Keep }

func (p MapPhase) spec() (map[string]any, error) {
	inner, err := p.Function.spec()
	if err != nil {
		return nil, err
	}
	if p.Arg != nil {
		inner["arg"] = p.Arg
	}
	inner["keep"] = p.Keep
	return map[string]any{"map": inner}, nil
}

// ReducePhase folds the output of the preceding phase.
type ReducePhase struct {
	Function PhaseFunction
	Arg      any
	Keep     bool
}

func (p ReducePhase) keepOutput() bool { return p.Keep }

func (p ReducePhase) spec() (map[string]any, error) {
	inner, err := p.Function.spec()
	if err != nil {
		return nil, err
	}
	if p.Arg != nil {
		inner["arg"] = p.Arg
	}
	inner["keep"] = p.Keep
	return map[string]any{"reduce": inner}, nil
}

// LinkPhase follows links on the input objects. Empty Bucket or Tag match
// any bucket or tag.
type LinkPhase struct {
	Bucket string
	Tag    string
	Keep   bool
}

func (p LinkPhase) keepOutput() bool { return p.Keep }

func (p LinkPhase) spec() (map[string]any, error) {
	bucket := p.Bucket
	if bucket == "" {
		bucket = "_"
	}
	tag := p.Tag
	if tag == "" {
		tag = "_"
	}
	return map[string]any{"link": map[string]any{
		"bucket": bucket,
		"tag":    tag,
		"keep":   p.Keep,
	}}, nil
}
