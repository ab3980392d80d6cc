package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestUnmaskReplacesTokensInNestedStructures(t *testing.T) {
	mapping := map[string]string{
		"[PERSON_1]": "John Smith",
		"[ORG_1]":    "Acme Corp",
	}
	data := map[string]any{
		"summary": "[PERSON_1] signs with [ORG_1]",
		"clauses": []any{
			map[string]any{"text": "[PERSON_1] shall indemnify [ORG_1]"},
			"no tokens here",
		},
		"count":  float64(3),
		"active": true,
		"note":   nil,
	}

	got := Unmask(data, mapping)

	want := map[string]any{
		"summary": "John Smith signs with Acme Corp",
		"clauses": []any{
			map[string]any{"text": "John Smith shall indemnify Acme Corp"},
			"no tokens here",
		},
		"count":  float64(3),
		"active": true,
		"note":   nil,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Unmask() = %#v, want %#v", got, want)
	}
}

func TestUnmaskAppliesLongerTokensFirst(t *testing.T) {
	// "[PERSON_1]" is a substring of "[PERSON_10]"; a naive map-order walk
	// could rewrite the long token's prefix and corrupt it.
	mapping := map[string]string{
		"[PERSON_1]":  "John Smith",
		"[PERSON_10]": "Jane Doe",
	}

	got := Unmask("[PERSON_10] and [PERSON_1]", mapping)
	if got != "Jane Doe and John Smith" {
		t.Fatalf("Unmask() = %q", got)
	}
}

func TestUnmaskEmptyMappingPassesThrough(t *testing.T) {
	data := map[string]any{"summary": "[PERSON_1]"}
	got := Unmask(data, nil)
	if !reflect.DeepEqual(got, data) {
		t.Fatalf("Unmask() with empty mapping changed data: %#v", got)
	}
}

func TestUnmaskLeavesNonStringPrimitives(t *testing.T) {
	for _, v := range []any{float64(42), true, nil} {
		if got := Unmask(v, map[string]string{"[X]": "y"}); !reflect.DeepEqual(got, v) {
			t.Fatalf("Unmask(%v) = %v", v, got)
		}
	}
}

func TestUnmaskRawRoundTrip(t *testing.T) {
	mapping := map[string]string{"[PERSON_1]": "John Smith"}
	raw := json.RawMessage(`{"parties":["[PERSON_1]","[ORG_1]"],"term":12}`)

	got := UnmaskRaw(raw, mapping)

	var decoded struct {
		Parties []string `json:"parties"`
		Term    int      `json:"term"`
	}
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("unmarshal unmasked: %v", err)
	}
	if decoded.Parties[0] != "John Smith" || decoded.Parties[1] != "[ORG_1]" {
		t.Fatalf("unexpected parties: %v", decoded.Parties)
	}
	if decoded.Term != 12 {
		t.Fatalf("term changed: %d", decoded.Term)
	}
}

func TestUnmaskRawInvalidJSONUnchanged(t *testing.T) {
	raw := json.RawMessage(`not json at all`)
	got := UnmaskRaw(raw, map[string]string{"[X]": "y"})
	if string(got) != string(raw) {
		t.Fatalf("invalid json should pass through, got %s", got)
	}
}
