package dom

import (
	"strings"
	"testing"
	"unicode/utf8"
)

const formHTML = `<html><head><title>Apply</title></head><body>
<form>
  <label for="fname">First name</label>
  <input id="fname" name="first_name" type="text" required>
  <input name="candidate_email" type="email" placeholder="Email address">
  <input type="hidden" name="csrf" value="x">
  <input type="text" name="ghost" style="display:none">
  <textarea name="cover_letter" aria-label="Cover letter"></textarea>
  <select name="country">
    <option value="">Choose</option>
    <option value="au" selected>Australia</option>
  </select>
  <fieldset>
    <legend>Do you require visa sponsorship?</legend>
    <label><input type="radio" name="sponsor" value="yes">Yes</label>
    <label><input type="radio" name="sponsor" value="no">No</label>
  </fieldset>
  <input type="checkbox" name="terms" aria-label="I agree to the terms">
  <input type="file" name="resume">
  <button type="submit">Submit application</button>
</form>
<a href="/help/how-to-apply">How to apply</a>
<a href="/jobs/123" role="button">View details</a>
<button disabled>Continue</button>
</body></html>`

func TestScanFields(t *testing.T) {
	t.Parallel()
	fields := ScanFields(Doc{HTML: formHTML}, "")

	byName := map[string]Field{}
	for _, f := range fields {
		byName[f.Name] = f
	}

	if _, ok := byName["csrf"]; ok {
		t.Fatalf("hidden input must not be scanned")
	}
	if _, ok := byName["ghost"]; ok {
		t.Fatalf("display:none input must not be scanned")
	}

	first, ok := byName["first_name"]
	if !ok {
		t.Fatalf("first_name not found; fields: %+v", fields)
	}
	if first.Label != "First name" {
		t.Fatalf("label[for] derivation failed, got %q", first.Label)
	}
	if !first.Required {
		t.Fatalf("required attribute not detected")
	}
	if !strings.Contains(first.Context(), "first name") && !strings.Contains(first.Context(), "First name") {
		t.Fatalf("context should carry the label, got %q", first.Context())
	}

	email := byName["candidate_email"]
	if email.Placeholder != "Email address" {
		t.Fatalf("placeholder not captured, got %q", email.Placeholder)
	}

	cover := byName["cover_letter"]
	if cover.Kind != FieldTextarea || cover.Label != "Cover letter" {
		t.Fatalf("aria-label derivation failed: %+v", cover)
	}

	country := byName["country"]
	if country.Kind != FieldSelect || len(country.Options) != 2 || country.Value != "au" {
		t.Fatalf("select scan failed: %+v", country)
	}

	resume := byName["resume"]
	if resume.Kind != FieldFile {
		t.Fatalf("file input kind wrong: %+v", resume)
	}
}

func TestScanRadioGroups(t *testing.T) {
	t.Parallel()
	groups := ScanRadioGroups(Doc{HTML: formHTML}, "")
	if len(groups) != 1 {
		t.Fatalf("expected 1 radio group, got %d", len(groups))
	}
	g := groups[0]
	if !strings.Contains(g.Question, "visa sponsorship") {
		t.Fatalf("fieldset legend not used as question, got %q", g.Question)
	}
	if len(g.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(g.Options))
	}
	if g.Options[0].Label != "Yes" || g.Options[1].Label != "No" {
		t.Fatalf("wrapping-label derivation failed: %+v", g.Options)
	}
}

func TestScanControls(t *testing.T) {
	t.Parallel()
	controls := ScanControls(Doc{HTML: formHTML}, "")

	var submit, help, details *Control
	for i := range controls {
		c := &controls[i]
		switch {
		case strings.Contains(c.Label, "Submit application"):
			submit = c
		case strings.Contains(c.Label, "How to apply"):
			help = c
		case strings.Contains(c.Label, "View details"):
			details = c
		}
		if strings.Contains(c.Label, "Continue") {
			t.Fatalf("disabled button must not be scanned")
		}
	}
	if submit == nil {
		t.Fatalf("submit button not found in %+v", controls)
	}
	if !submit.InForm || submit.Type != "submit" {
		t.Fatalf("form enclosure or type not detected: %+v", submit)
	}
	if help == nil {
		t.Fatalf("apply-matching anchor should be scanned (ranker excludes it later)")
	}
	if details == nil {
		t.Fatalf("role=button anchor should be scanned")
	}
}

func TestFramePathJoin(t *testing.T) {
	t.Parallel()
	fields := ScanFields(Doc{FramePath: "iframe:nth-of-type(1)", HTML: `<html><body><input type="text" name="q"></body></html>`}, "")
	if len(fields) != 1 {
		t.Fatalf("expected one field, got %d", len(fields))
	}
	if !strings.HasPrefix(fields[0].Path, "iframe:nth-of-type(1) >>> ") {
		t.Fatalf("frame path not joined: %q", fields[0].Path)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()
	a := PageSnapshot{
		URL:   "https://jobs.example.com/apply?step=2#top",
		Title: "Application",
		Docs:  []Doc{{HTML: `<html><body><p>Step two of four</p></body></html>`}},
	}
	b := PageSnapshot{
		URL:   "https://jobs.example.com/apply?step=2&utm=x",
		Title: "Application",
		Docs:  []Doc{{HTML: `<html><body><p>Step   two of four</p></body></html>`}},
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("query strings and whitespace must not affect the fingerprint:\n%q\n%q", a.Fingerprint(), b.Fingerprint())
	}
	c := b
	c.Docs = []Doc{{HTML: `<html><body><p>Step three of four</p></body></html>`}}
	if a.Fingerprint() == c.Fingerprint() {
		t.Fatalf("body text change must change the fingerprint")
	}
}

func TestSignature(t *testing.T) {
	t.Parallel()
	if Signature("  Submit   Application ") != "submit application" {
		t.Fatalf("signature normalization failed")
	}
	long := strings.Repeat("x", 100)
	if len(Signature(long)) != 64 {
		t.Fatalf("signature must truncate to 64")
	}
	// Multi-byte labels must never be cut mid-rune.
	if s := Signature(strings.Repeat("å", 100)); !utf8.ValidString(s) {
		t.Fatalf("signature split a rune: %q", s)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"within limit unchanged", "hello", 10, "hello"},
		{"ascii cut", "hello", 3, "hel"},
		{"backs off to rune boundary", "héllo", 2, "h"},
		{"keeps whole rune at boundary", "héllo", 3, "hé"},
		{"zero limit", "héllo", 0, ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Truncate(tt.in, tt.n)
			if got != tt.want {
				t.Fatalf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("Truncate produced invalid UTF-8: %q", got)
			}
		})
	}
}
