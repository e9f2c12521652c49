package jsonwire

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/wisteria-social/federation"
	"github.com/wisteria-social/federation/xmlwire"
)

func pollFields() map[string]any {
	return map[string]any{
		"guid":     "abc123",
		"question": "What?",
		"poll_answers": []map[string]any{
			{"guid": "answer0000000001", "answer": "yes"},
			{"guid": "answer0000000002", "answer": "no"},
		},
	}
}

func TestRoundTripPoll(t *testing.T) {
	reg := federation.Social()
	poll, err := reg.New("Poll", pollFields())
	if err != nil {
		t.Fatalf("construct poll failed: %v", err)
	}

	data, err := Marshal(poll)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	back, err := Unmarshal(reg, data)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !poll.Equal(back) {
		t.Fatalf("round trip mismatch:\n%s", data)
	}
	if back.String() != "Poll:abc123" {
		t.Fatalf("unexpected identity %q", back.String())
	}
}

func TestEnvelopeShape(t *testing.T) {
	reg := federation.Social()
	poll, err := reg.New("Poll", pollFields())
	if err != nil {
		t.Fatalf("construct poll failed: %v", err)
	}

	data, err := Marshal(poll)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var doc struct {
		EntityType string         `json:"entity_type"`
		EntityData map[string]any `json:"entity_data"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if doc.EntityType != "poll" {
		t.Fatalf("unexpected entity_type %q", doc.EntityType)
	}

	answers, ok := doc.EntityData["poll_answers"].([]any)
	if !ok || len(answers) != 2 {
		t.Fatalf("expected two ordered answers, got %v", doc.EntityData["poll_answers"])
	}
	first, ok := answers[0].(map[string]any)
	if !ok || first["entity_type"] != "poll_answer" {
		t.Fatalf("nested answers must use the envelope shape, got %v", answers[0])
	}
}

func TestNativeScalars(t *testing.T) {
	reg := federation.Social()
	photo, err := reg.New("Photo", map[string]any{
		"guid":              "abcdef0123456789",
		"author":            "alice@pod.example.org",
		"public":            true,
		"created_at":        "2025-06-01T12:00:00Z",
		"remote_photo_path": "https://pod.example.org/uploads/",
		"remote_photo_name": "f3e1a2.jpg",
		"height":            480,
		"width":             640,
	})
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}

	data, err := Marshal(photo)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"height":480`) || !strings.Contains(s, `"public":true`) {
		t.Fatalf("expected native JSON scalars:\n%s", s)
	}
	if !strings.Contains(s, `"created_at":"2025-06-01T12:00:00Z"`) {
		t.Fatalf("expected RFC3339 timestamp:\n%s", s)
	}
}

func TestCrossFormatEquivalence(t *testing.T) {
	reg := federation.Social()
	poll, err := reg.New("Poll", pollFields())
	if err != nil {
		t.Fatalf("construct poll failed: %v", err)
	}

	jsonData, err := Marshal(poll)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}
	xmlData, err := xmlwire.Marshal(poll)
	if err != nil {
		t.Fatalf("xml marshal failed: %v", err)
	}

	fromJSON, err := Unmarshal(reg, jsonData)
	if err != nil {
		t.Fatalf("json unmarshal failed: %v", err)
	}
	fromXML, err := xmlwire.Unmarshal(reg, xmlData)
	if err != nil {
		t.Fatalf("xml unmarshal failed: %v", err)
	}

	if !fromJSON.Equal(fromXML) {
		t.Fatalf("cross-format mismatch:\njson: %s\nxml: %s", jsonData, xmlData)
	}
}

func TestUnknownEntityType(t *testing.T) {
	reg := federation.Social()

	_, err := Unmarshal(reg, []byte(`{"entity_type":"widget","entity_data":{}}`))
	if !errors.Is(err, federation.ErrMalformedPayload) {
		t.Fatalf("expected MalformedPayloadError, got %v", err)
	}
}

func TestUnparsableDocument(t *testing.T) {
	reg := federation.Social()

	_, err := Unmarshal(reg, []byte(`{"entity_type":`))
	if !errors.Is(err, federation.ErrMalformedPayload) {
		t.Fatalf("expected MalformedPayloadError, got %v", err)
	}
}

func TestValidationErrorPropagates(t *testing.T) {
	reg := federation.Social()

	_, err := Unmarshal(reg, []byte(`{"entity_type":"poll_answer","entity_data":{"answer":"yes"}}`))
	if !errors.Is(err, federation.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
