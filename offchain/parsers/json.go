// Package parsers holds ContentParser implementations keyed by manifest
// name. JSONManifestParser is the reference implementation standing in
// for the sandboxed, user-supplied parser modules out of scope for this
// module: it validates the downloaded bytes are well-formed JSON and
// hands the decoded value to a caller-supplied sink function, which is
// enough to exercise the full task lifecycle end-to-end.
package parsers

import (
	"encoding/json"
	"fmt"

	"github.com/eureka-network/eureka-sink/offchain/task"
)

// Sink receives the decoded content of a successfully parsed task. It
// stands in for "emit derived record changes" against the upstream
// relational store.
type Sink func(t task.ResolveTask, decoded interface{}) error

// JSONManifestParser validates that downloaded bytes are well-formed
// JSON, then forwards the decoded value to its sink.
type JSONManifestParser struct {
	sink Sink
}

func NewJSONManifestParser(sink Sink) *JSONManifestParser {
	return &JSONManifestParser{sink: sink}
}

func (p *JSONManifestParser) Parse(t task.ResolveTask, content []byte) error {
	var decoded interface{}
	if err := json.Unmarshal(content, &decoded); err != nil {
		return fmt.Errorf("json manifest parser: invalid json for %s: %w", t.Request.URI, err)
	}

	if p.sink == nil {
		return nil
	}
	if err := p.sink(t, decoded); err != nil {
		return fmt.Errorf("json manifest parser: sink rejected %s: %w", t.Request.URI, err)
	}
	return nil
}
