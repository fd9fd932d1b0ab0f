package llm

import (
	"testing"
)

func TestParseJSONResponsePlain(t *testing.T) {
	result := ParseJSONResponse(`{"key": "value", "num": 42}`)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
	if result["num"] != float64(42) {
		t.Errorf("expected num=42, got %v", result["num"])
	}
}

func TestParseJSONResponseWithCodeFence(t *testing.T) {
	text := "```json\n{\"key\": \"value\"}\n```"
	result := ParseJSONResponse(text)
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if result["key"] != "value" {
		t.Errorf("expected key='value', got %v", result["key"])
	}
}

func TestParseJSONResponseInvalid(t *testing.T) {
	if result := ParseJSONResponse("not json at all"); result != nil {
		t.Error("expected nil for invalid JSON")
	}
}

func TestParseJSONResponseEmpty(t *testing.T) {
	if result := ParseJSONResponse(""); result != nil {
		t.Error("expected nil for empty string")
	}
}

func TestStringAccessor(t *testing.T) {
	m := map[string]any{"title": "Solar System", "n": 3.0}
	if got := String(m, "title", "x"); got != "Solar System" {
		t.Errorf("expected title, got %q", got)
	}
	if got := String(m, "missing", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := String(m, "n", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for non-string, got %q", got)
	}
}

func TestIntAccessor(t *testing.T) {
	m := map[string]any{"correct_index": 2.0, "label": "two"}
	if got := Int(m, "correct_index", 0); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if got := Int(m, "label", 7); got != 7 {
		t.Errorf("expected fallback for non-number, got %d", got)
	}
	if got := Int(m, "missing", 7); got != 7 {
		t.Errorf("expected fallback for missing key, got %d", got)
	}
}

func TestStringsAccessor(t *testing.T) {
	m := map[string]any{"options": []any{"A", "B", 3.0, "C"}}
	got := Strings(m, "options")
	if len(got) != 3 || got[0] != "A" || got[2] != "C" {
		t.Errorf("expected [A B C], got %v", got)
	}
	if Strings(m, "missing") != nil {
		t.Error("expected nil for missing key")
	}
}

func TestObjectsAccessor(t *testing.T) {
	m := map[string]any{"questions": []any{
		map[string]any{"question": "Q1"},
		"not an object",
		map[string]any{"question": "Q2"},
	}}
	got := Objects(m, "questions")
	if len(got) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(got))
	}
	if got[1]["question"] != "Q2" {
		t.Errorf("expected Q2, got %v", got[1]["question"])
	}
}
