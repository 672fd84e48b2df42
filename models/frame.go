package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Frame is the payload of one multiplexed message after the transport has
// stripped the channel identifier: an ordered sequence of loosely typed
// fields. Numbers are carried as json.Number so that decoding into decimals
// stays lossless.
type Frame []any

// DecodeFrame parses the raw bytes of a channel message body into a Frame.
// The input must be a JSON array.
func DecodeFrame(data []byte) (Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields []any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return Frame(fields), nil
}

// IsList reports whether the field is itself a sequence.
func IsList(field any) bool {
	_, ok := field.([]any)
	return ok
}

// IsListOfLists reports whether every element of the field is itself a
// sequence. An empty sequence counts as a list of lists, matching the
// venue's snapshot shape for a momentarily empty book.
func IsListOfLists(field any) bool {
	outer, ok := field.([]any)
	if !ok {
		return false
	}
	for _, inner := range outer {
		if !IsList(inner) {
			return false
		}
	}
	return true
}
