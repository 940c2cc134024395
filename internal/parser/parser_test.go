package parser

import (
	"testing"
	"time"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - notes\n---\n# Hello\nBody text.\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) < 2 || r.Tags[0] != "go" || r.Tags[1] != "notes" {
		t.Errorf("tags = %v, want [go notes]", r.Tags)
	}
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse([]byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Invalid YAML falls back to treating everything as body.
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]interface{}{
		"tags": []interface{}{"alpha"},
	}
	body := "Some text #beta and #alpha again."
	tags := extractTags(body, fm)
	// alpha from FM, beta from body; alpha not duplicated.
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestExtractTags_IgnoresMidWordHash(t *testing.T) {
	tags := extractTags("C# is no#t a tag but #real is", nil)
	if len(tags) != 1 || tags[0] != "real" {
		t.Errorf("tags = %v, want [real]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	fm := map[string]interface{}{"title": "FM Title"}
	if got := deriveTitle(fm, "# H1 Title\ntext"); got != "FM Title" {
		t.Errorf("title = %q, want %q", got, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	if got := deriveTitle(nil, "some text\n# My Heading\nmore"); got != "My Heading" {
		t.Errorf("title = %q, want %q", got, "My Heading")
	}
}

func TestExtractCreated_Formats(t *testing.T) {
	cases := []struct {
		value interface{}
		want  time.Time
	}{
		{"2024-03-10", time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local)},
		{"2024-03-10 14:30:00", time.Date(2024, 3, 10, 14, 30, 0, 0, time.Local)},
		{int64(1700000000), time.Unix(1700000000, 0)},
		{"not a date", time.Time{}},
	}
	for _, tc := range cases {
		got := extractCreated(map[string]interface{}{"created": tc.value})
		if !got.Equal(tc.want) {
			t.Errorf("created %v = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestExtractCreated_YAMLDecodedTime(t *testing.T) {
	// yaml.v3 decodes bare dates straight to time.Time.
	r, err := Parse([]byte("---\ncreated: 2024-03-10T10:00:00Z\n---\nbody"))
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	if !r.Created.Equal(want) {
		t.Errorf("created = %v, want %v", r.Created, want)
	}
}
