// Package idhash provides canonical hashing and PII redaction for tool
// inputs/outputs before they cross a trust boundary (persistence, trace
// frames). Raw values are never redacted on their way to the adapter's
// downstream endpoint — only the copies we log or persist.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"sort"
)

// Canonical computes the sha256 hex digest of v's canonical JSON encoding:
// map keys sorted, no insignificant whitespace. Used for ToolCall.InputHash
// / OutputHash and for deduping repeated tool errors within a Run.
func Canonical(v any) string {
	encoded := canonicalize(v)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

func canonicalize(v any) []byte {
	normalized := normalize(v)
	b, err := json.Marshal(normalized)
	if err != nil {
		// Inputs are always map[string]any/JSON-ish values produced by the
		// LLM driver or an adapter; marshal failure means a caller passed
		// something pathological (e.g. a channel). Fall back to a stable
		// placeholder rather than panicking the Run.
		return []byte(`"unhashable"`)
	}
	return b
}

// normalize walks the value so that map keys are emitted in sorted order
// regardless of map iteration order, and so nested maps get the same
// treatment recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			out = append(out, kv{k, normalize(t[k])})
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	default:
		return t
	}
}

type kv struct {
	K string
	V any
}

// orderedMap marshals as a JSON object preserving insertion order, which
// normalize() has already sorted by key.
type orderedMap []kv

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, pair := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		key, _ := json.Marshal(pair.K)
		buf = append(buf, key...)
		buf = append(buf, ':')
		val, err := json.Marshal(pair.V)
		if err != nil {
			return nil, err
		}
		buf = append(buf, val...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// piiPatterns matches email addresses, phone numbers, credit-card-like
// digit runs, and SSN-like digit groups. Applied only to log/trace
// payloads (spec.md §4.2): the adapter still sends raw values downstream.
var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
	regexp.MustCompile(`\b\d{3}[-.\s]?\d{3}[-.\s]?\d{4}\b`),
	regexp.MustCompile(`\b(?:\d[ -]*?){13,16}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
}

const redactedPlaceholder = "[redacted]"

// RedactString replaces PII-shaped substrings with a placeholder.
func RedactString(s string) string {
	for _, p := range piiPatterns {
		s = p.ReplaceAllString(s, redactedPlaceholder)
	}
	return s
}

// Redact walks a map[string]any tree (as produced by a tool adapter) and
// returns a deep copy with PII-shaped string values redacted. Non-string
// leaves are passed through unchanged.
func Redact(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = redactValue(val)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case string:
		return RedactString(t)
	case map[string]any:
		return Redact(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e)
		}
		return out
	default:
		return t
	}
}
