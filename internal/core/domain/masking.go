package domain

import (
	"encoding/json"
	"sort"
	"strings"
)

// Unmask walks a decoded JSON value and replaces every occurrence of every
// mapping key (a masking token such as "[PERSON_1]") with its original
// value. Strings are rewritten, arrays and objects are walked recursively
// with order, length and key sets preserved, other primitives pass through
// untouched. Keys are literal substrings, not patterns.
//
// Longer tokens are applied first so that a token which contains another
// token as a substring cannot be corrupted by a shorter replacement. The
// result is not guaranteed idempotent when a mapping value itself contains
// another token.
func Unmask(data any, mapping map[string]string) any {
	if len(mapping) == 0 {
		return data
	}

	switch v := data.(type) {
	case string:
		return unmaskString(v, mapping)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Unmask(item, mapping)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Unmask(item, mapping)
		}
		return out
	default:
		return data
	}
}

// UnmaskRaw applies Unmask to an encoded JSON document. Values that do not
// decode are returned unchanged.
func UnmaskRaw(raw json.RawMessage, mapping map[string]string) json.RawMessage {
	if len(raw) == 0 || len(mapping) == 0 {
		return raw
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return raw
	}

	encoded, err := json.Marshal(Unmask(decoded, mapping))
	if err != nil {
		return raw
	}
	return encoded
}

func unmaskString(s string, mapping map[string]string) string {
	for _, token := range tokensByLength(mapping) {
		s = strings.ReplaceAll(s, token, mapping[token])
	}
	return s
}

func tokensByLength(mapping map[string]string) []string {
	tokens := make([]string, 0, len(mapping))
	for token := range mapping {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	return tokens
}
