package dataio

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/YuminosukeSato/featurekit/frame"
	"github.com/YuminosukeSato/featurekit/pkg/errors"
)

// ReadJSONRecords decodes either a JSON array of row objects or an object
// with an "instances" array of them. kinds overrides kind inference for the
// named columns.
func ReadJSONRecords(r io.Reader, kinds map[string]frame.Kind) (*frame.Frame, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json")
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.NewValueError("dataio.ReadJSONRecords", "empty body")
	}

	var records []map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if body[0] == '[' {
		err = dec.Decode(&records)
	} else {
		var wrapped struct {
			Instances []map[string]any `json:"instances"`
		}
		err = dec.Decode(&wrapped)
		records = wrapped.Instances
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode json records")
	}
	return frame.FromRecords(records, kinds)
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode json")
	}
	return nil
}

// WriteRecords writes f as a JSON array of row objects.
func WriteRecords(w io.Writer, f *frame.Frame) error {
	return WriteJSON(w, f.Records())
}
