package federation

import (
	"errors"
	"testing"
	"time"
)

func photoFields() map[string]any {
	return map[string]any{
		"guid":              "abcdef0123456789",
		"author":            "alice@pod.example.org",
		"created_at":        "2025-06-01T12:00:00Z",
		"remote_photo_path": "https://pod.example.org/uploads/",
		"remote_photo_name": "f3e1a2.jpg",
	}
}

func TestNewPhoto(t *testing.T) {
	reg := Social()

	photo, err := reg.New("Photo", photoFields())
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}

	guid, err := photo.Get("guid")
	if err != nil {
		t.Fatalf("get guid failed: %v", err)
	}
	if guid.Str() != "abcdef0123456789" {
		t.Fatalf("unexpected guid %q", guid.Str())
	}

	created, _ := photo.Get("created_at")
	if created.Kind() != KindTimestamp {
		t.Fatalf("created_at not coerced to timestamp: %s", created.Kind())
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !created.Time().Equal(want) {
		t.Fatalf("unexpected created_at %v", created.Time())
	}
}

func TestDefaultsApplied(t *testing.T) {
	reg := Social()

	photo, err := reg.New("Photo", photoFields())
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}

	public, err := photo.Get("public")
	if err != nil {
		t.Fatalf("get public failed: %v", err)
	}
	if public.Kind() != KindBoolean || public.Bool() {
		t.Fatalf("expected public default false, got %v", public)
	}

	text, err := photo.Get("text")
	if err != nil {
		t.Fatalf("get text failed: %v", err)
	}
	if text.Kind() != KindInvalid {
		t.Fatalf("expected absent text, got %v", text)
	}
}

func TestMissingRequiredProperty(t *testing.T) {
	reg := Social()

	fields := photoFields()
	delete(fields, "guid")

	_, err := reg.New("Photo", fields)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestValidationAggregatesViolations(t *testing.T) {
	reg := Social()

	_, err := reg.New("Photo", map[string]any{
		"guid":   "short",
		"author": "not an id",
		"height": -1,
		"width":  "nope",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	// guid format, bad author, missing created_at, missing remote_photo_path,
	// missing remote_photo_name, negative height, uncoercible width
	if len(verr.Violations) < 6 {
		t.Fatalf("expected aggregated violations, got %v", verr.Violations)
	}
}

func TestCrossFieldRule(t *testing.T) {
	reg := Social()

	fields := photoFields()
	fields["height"] = 480

	_, err := reg.New("Photo", fields)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ValidationError for lone height, got %v", err)
	}

	fields["width"] = "640"
	photo, err := reg.New("Photo", fields)
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}
	width, _ := photo.Get("width")
	if width.Int() != 640 {
		t.Fatalf("expected width coerced to 640, got %v", width)
	}
}

func TestUnknownEntityType(t *testing.T) {
	reg := Social()

	_, err := reg.New("Widget", nil)
	if !errors.Is(err, ErrUnknownEntityType) {
		t.Fatalf("expected UnknownEntityTypeError, got %v", err)
	}
	if _, err := reg.Lookup("Widget"); !errors.Is(err, ErrUnknownEntityType) {
		t.Fatalf("expected UnknownEntityTypeError, got %v", err)
	}
}

func TestNoSuchProperty(t *testing.T) {
	reg := Social()

	photo, err := reg.New("Photo", photoFields())
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}

	_, err = photo.Get("resolution")
	if !errors.Is(err, ErrNoSuchProperty) {
		t.Fatalf("expected NoSuchPropertyError, got %v", err)
	}
}

func TestEntityEquality(t *testing.T) {
	reg := Social()

	a, err := reg.New("Photo", photoFields())
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}
	b, err := reg.New("Photo", photoFields())
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}
	if !a.Equal(b) {
		t.Fatal("expected equal photos")
	}

	changed := photoFields()
	changed["text"] = "beach"
	c, err := reg.New("Photo", changed)
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}
	if a.Equal(c) {
		t.Fatal("expected photos to differ")
	}
}

func TestDisplayIdentity(t *testing.T) {
	reg := Social()

	poll, err := reg.New("Poll", map[string]any{
		"guid":     "abc123abc123abc123",
		"question": "What?",
		"poll_answers": []map[string]any{
			{"guid": "answer0000000001", "answer": "yes"},
			{"guid": "answer0000000002", "answer": "no"},
		},
	})
	if err != nil {
		t.Fatalf("construct poll failed: %v", err)
	}
	if poll.String() != "Poll:abc123abc123abc123" {
		t.Fatalf("unexpected identity %q", poll.String())
	}

	retraction, err := reg.New("Retraction", map[string]any{
		"author":      "alice@pod.example.org",
		"target_guid": "abcdef0123456789",
		"target_type": "Post",
	})
	if err != nil {
		t.Fatalf("construct retraction failed: %v", err)
	}
	if retraction.String() != "Retraction" {
		t.Fatalf("unexpected identity %q", retraction.String())
	}
}

func TestFieldsCopyDoesNotMutate(t *testing.T) {
	reg := Social()

	photo, err := reg.New("Photo", photoFields())
	if err != nil {
		t.Fatalf("construct photo failed: %v", err)
	}

	fields := photo.Fields()
	fields["guid"] = String("tampered00000000")

	guid, _ := photo.Get("guid")
	if guid.Str() != "abcdef0123456789" {
		t.Fatal("entity must not observe mutation of the Fields projection")
	}
}

func TestNestedEntityFromMap(t *testing.T) {
	reg := Social()

	post, err := reg.New("Post", map[string]any{
		"guid":       "post000000000001",
		"author":     "alice@pod.example.org",
		"created_at": time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
		"text":       "vote!",
		"poll": map[string]any{
			"guid":     "poll000000000001",
			"question": "What?",
			"poll_answers": []any{
				map[string]any{"guid": "answer0000000001", "answer": "yes"},
			},
		},
	})
	if err != nil {
		t.Fatalf("construct post failed: %v", err)
	}

	poll, _ := post.Get("poll")
	if poll.Kind() != KindEntity || poll.Entity().TypeName() != "Poll" {
		t.Fatalf("expected nested poll, got %v", poll)
	}
	answers, _ := poll.Entity().Get("poll_answers")
	if len(answers.Entities()) != 1 {
		t.Fatalf("expected one answer, got %d", len(answers.Entities()))
	}
}

func TestNestedEntityTypeMismatch(t *testing.T) {
	reg := Social()

	answer, err := reg.New("PollAnswer", map[string]any{
		"guid":   "answer0000000001",
		"answer": "yes",
	})
	if err != nil {
		t.Fatalf("construct answer failed: %v", err)
	}

	_, err = reg.New("Post", map[string]any{
		"guid":       "post000000000001",
		"author":     "alice@pod.example.org",
		"created_at": "2025-06-01T09:30:00Z",
		"poll":       answer,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ValidationError for wrong nested type, got %v", err)
	}
}

func TestRegistryRejectsBadSchemas(t *testing.T) {
	cases := []struct {
		name   string
		schema Schema
	}{
		{
			"duplicate property",
			Schema{Name: "Dup", Properties: []Property{
				{Name: "a", Kind: KindString},
				{Name: "a", Kind: KindString},
			}},
		},
		{
			"unregistered nested type",
			Schema{Name: "Dangling", Properties: []Property{
				{Name: "inner", Kind: KindEntity, EntityType: "Nowhere"},
			}},
		},
		{
			"self nesting",
			Schema{Name: "Loop", Properties: []Property{
				{Name: "inner", Kind: KindEntity, EntityType: "Loop"},
			}},
		},
		{
			"default kind mismatch",
			Schema{Name: "BadDefault", Properties: []Property{
				{Name: "a", Kind: KindInteger, Default: def(Boolean(true))},
			}},
		},
		{
			"rule on undeclared property",
			Schema{Name: "BadRule", Properties: []Property{
				{Name: "a", Kind: KindString},
			}, Rules: []Rule{NotEmptyRule("b")}},
		},
	}

	for _, tc := range cases {
		reg := NewRegistry()
		if err := reg.RegisterType(tc.schema); err == nil {
			t.Fatalf("%s: expected registration to fail", tc.name)
		}
	}
}

func TestRegisterTwice(t *testing.T) {
	reg := NewRegistry()
	s := Schema{Name: "Thing", Properties: []Property{{Name: "a", Kind: KindString}}}
	if err := reg.RegisterType(s); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := reg.RegisterType(s); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestBooleanCoercion(t *testing.T) {
	reg := Social()

	for raw, want := range map[string]bool{
		"true": true, "t": true, "1": true, "yes": true,
		"false": false, "F": false, "0": false, "no": false,
	} {
		fields := photoFields()
		fields["public"] = raw
		photo, err := reg.New("Photo", fields)
		if err != nil {
			t.Fatalf("coerce %q failed: %v", raw, err)
		}
		public, _ := photo.Get("public")
		if public.Bool() != want {
			t.Fatalf("coerce %q: expected %v", raw, want)
		}
	}

	fields := photoFields()
	fields["public"] = "maybe"
	if _, err := reg.New("Photo", fields); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ValidationError for %q, got %v", "maybe", err)
	}
}
