// Package schema centralizes the two JSON schema tags this module emits
// (diagnostic reports and elaborated-program dumps) plus the deterministic
// encoder both callers share.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Schema version tags stamped onto internal/diag.Report and cmd/lustrecheck's
// node dump, respectively.
const (
	ErrorV1   = "lustrecheck.error/v1"
	ProgramV1 = "lustrecheck.program/v1"
)

// Accepts reports whether got is compatible with wantPrefix: an exact match,
// or a minor/patch revision of the same major version. Used by lustrecheck
// to reject manifests authored against an incompatible major schema while
// tolerating older or newer minor revisions of the one it understands.
func Accepts(got, wantPrefix string) bool {
	if got == wantPrefix {
		return true
	}
	if strings.HasPrefix(got, wantPrefix+".") {
		return true
	}
	if strings.HasSuffix(wantPrefix, "/v1") && strings.HasPrefix(got, strings.TrimSuffix(wantPrefix, "1")+"1.") {
		return true
	}
	return false
}

// MarshalDeterministic marshals v to JSON with object keys sorted, so two
// elaborations of the same program produce byte-identical output.
func MarshalDeterministic(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("initial marshal failed: %w", err)
	}
	data := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))

	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return data, nil
	}
	return marshalSorted(tree)
}

func marshalSorted(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b bytes.Buffer
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			keyJSON, err := encodeNoEscape(k)
			if err != nil {
				return nil, err
			}
			valJSON, err := marshalSorted(val[k])
			if err != nil {
				return nil, err
			}
			b.Write(keyJSON)
			b.WriteByte(':')
			b.Write(valJSON)
		}
		b.WriteByte('}')
		return b.Bytes(), nil

	case []any:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			itemJSON, err := marshalSorted(item)
			if err != nil {
				return nil, err
			}
			b.Write(itemJSON)
		}
		b.WriteByte(']')
		return b.Bytes(), nil

	default:
		return encodeNoEscape(v)
	}
}

func encodeNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// CompactMode controls FormatJSON's output width. Set by cmd/lustrecheck's
// -compact flag.
var CompactMode = false

// SetCompactMode enables or disables compact JSON output.
func SetCompactMode(enabled bool) {
	CompactMode = enabled
}

// FormatJSON re-indents data per CompactMode: one line when compact,
// two-space indentation otherwise.
func FormatJSON(data []byte) ([]byte, error) {
	if CompactMode {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
