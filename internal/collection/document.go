package collection

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultTextField is the input field holding the document body.
const DefaultTextField = "text"

// OutputDocument is one line of a shard file.
type OutputDocument struct {
	ID       int    `json:"id"`
	Contents string `json:"contents"`
}

// extractText decodes one input line and returns the value of field.
// ok is false when the field is absent or holds a falsy value (null, false,
// zero, "", [] or {}), in which case the document is dropped. Lines that are
// not JSON objects, or whose field holds a non-empty non-string value, are
// errors.
func extractText(line []byte, field string) (text string, ok bool, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return "", false, err
	}
	if fields == nil {
		return "", false, fmt.Errorf("expected a JSON object, got null")
	}

	raw, present := fields[field]
	if !present || isFalsy(raw) {
		return "", false, nil
	}

	if err := json.Unmarshal(raw, &text); err != nil {
		return "", false, fmt.Errorf("field %q is not a string", field)
	}

	return text, true, nil
}

// isFalsy reports whether raw is null, false, a zero number, or an empty
// string, array or object.
func isFalsy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return true
	}

	switch raw[0] {
	case 'n':
		return true
	case 'f':
		return true
	case 't':
		return false
	case '"':
		return bytes.Equal(raw, []byte(`""`))
	case '[':
		var items []json.RawMessage
		return json.Unmarshal(raw, &items) == nil && len(items) == 0
	case '{':
		var members map[string]json.RawMessage
		return json.Unmarshal(raw, &members) == nil && len(members) == 0
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		return err == nil && f == 0
	}
}

// isBlank reports whether a line holds only whitespace.
func isBlank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}
