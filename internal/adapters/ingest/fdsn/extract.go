package fdsn

import (
	"bytes"
	"encoding/json"
	"errors"
)

// State is the position of the Extractor within a response
type State uint8

const (
	// StateHeader expects the collection header line
	StateHeader State = iota
	// StateBody expects one feature per line
	StateBody
	// StateTerminal means the response has ended
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateHeader:
		return "header"
	case StateBody:
		return "body"
	case StateTerminal:
		return "terminal"
	}
	return "unknown"
}

// bboxMarker is where the feature array closes and the collection trailer starts
var bboxMarker = []byte(`],"bbox"`)

// headerCloser completes a header line that stops inside the features array
var headerCloser = []byte("]}")

var (
	errTrailingData = errors.New("trailing data after top-level value")
	// ErrTerminated is returned when Feed is called after Finish
	ErrTerminated = errors.New("fdsn: extractor already terminated")
)

// Extractor turns response lines into feature batches. It is not safe for
// concurrent use; one Extractor serves one response
type Extractor struct {
	state State
}

// NewExtractor returns an Extractor waiting for the header line
func NewExtractor() *Extractor { return &Extractor{} }

// State reports the current state
func (x *Extractor) State() State { return x.state }

// Finish moves the Extractor to its terminal state
func (x *Extractor) Finish() { x.state = StateTerminal }

// Feed decodes one line. Blank lines yield an empty batch and do not advance
// the state. The header line always advances to the body state, even when it
// fails to decode. A *ParseError only concerns the line it was returned for
func (x *Extractor) Feed(fragment []byte) (Batch, error) {
	frag := bytes.TrimSpace(fragment)
	if len(frag) == 0 {
		return Batch{}, nil
	}
	switch x.state {
	case StateHeader:
		x.state = StateBody
		return header(frag)
	case StateBody:
		return body(frag)
	default:
		return Batch{}, ErrTerminated
	}
}

// header repairs `{..."features":[{...},` into a complete document. A line
// that already is a complete document (zero or one feature responses) is
// decoded as is
func header(frag []byte) (Batch, error) {
	repaired := append(bytes.TrimSuffix(bytes.Clone(frag), []byte(",")), headerCloser...)

	var doc collection
	err := decodeOne(repaired, &doc)
	if err != nil {
		doc = collection{}
		if err2 := decodeOne(frag, &doc); err2 != nil {
			return Batch{}, newParseError(StateHeader, frag, err)
		}
	}
	return Batch{Features: doc.Features, Metadata: doc.Metadata}, nil
}

// body decodes a feature line, which may hold several comma separated
// features. The last line carries the bbox trailer, which is cut at the
// marker before one more attempt
func body(frag []byte) (Batch, error) {
	frag = bytes.TrimSuffix(frag, []byte(","))

	fs, err := decodeFeatures(frag)
	if err == nil {
		return Batch{Features: fs}, nil
	}

	i := bytes.Index(frag, bboxMarker)
	if i < 0 {
		return Batch{}, newParseError(StateBody, frag, err)
	}
	cut := bytes.TrimSpace(frag[:i])
	if len(cut) == 0 {
		return Batch{}, nil
	}
	fs, err = decodeFeatures(cut)
	if err != nil {
		return Batch{}, newParseError(StateBody, frag, err)
	}
	return Batch{Features: fs}, nil
}

// decodeFeatures decodes `{...}` or `{...},{...}`. Anything but a comma
// between values is errTrailingData
func decodeFeatures(b []byte) ([]Feature, error) {
	var out []Feature
	for {
		dec := json.NewDecoder(bytes.NewReader(b))
		var f Feature
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
		out = append(out, f)

		b = bytes.TrimSpace(b[dec.InputOffset():])
		if len(b) == 0 {
			return out, nil
		}
		if b[0] != ',' {
			return nil, errTrailingData
		}
		b = b[1:]
	}
}

// decodeOne decodes exactly one JSON value from b; anything but whitespace
// after it is errTrailingData
func decodeOne(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if len(bytes.TrimSpace(b[dec.InputOffset():])) > 0 {
		return errTrailingData
	}
	return nil
}
