// Package export holds what the JSON-LD and Roam parsers share: the
// unreadable-document sentinel and the streaming walk over a JSON array of
// records.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnreadable marks an export whose top-level structure cannot be read at
// all. Individual bad records never produce it.
var ErrUnreadable = errors.New("export unreadable")

// Unreadable wraps err so errors.Is(err, ErrUnreadable) holds
func Unreadable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnreadable, fmt.Sprintf(format, args...))
}

// ExpectDelim reads the next token and checks it is the given delimiter
func ExpectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Unreadable("empty document")
		}
		return Unreadable("reading %q: %v", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return Unreadable("expected %q, found %v", want, tok)
	}
	return nil
}

// ArrayResult reports how a streamed array ended
type ArrayResult struct {
	Records   int
	Truncated bool
	Err       error // the decode error that stopped the stream, if any
}

// StreamArray calls each for every element of the array whose opening '['
// has already been consumed. A syntax error or early EOF stops the stream;
// the elements handed out before it stay valid and the result is marked
// truncated.
func StreamArray(dec *json.Decoder, each func(raw json.RawMessage)) ArrayResult {
	var res ArrayResult
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			res.Truncated = true
			res.Err = err
			return res
		}
		res.Records++
		each(raw)
	}
	if _, err := dec.Token(); err != nil {
		res.Truncated = true
		res.Err = err
	}
	return res
}

// SkipValue consumes the next JSON value whatever its type
func SkipValue(dec *json.Decoder) error {
	var discard json.RawMessage
	return dec.Decode(&discard)
}

// String decodes raw as a JSON string, returning "" for null, missing or
// non-string values
func String(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
