package dom

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Doc is one parseable document surface: the top-level page or a
// same-origin iframe. FramePath is the css path to the iframe chain,
// empty for the top document. Paths that cross a frame boundary join the
// segments with " >>> ".
type Doc struct {
	FramePath string
	HTML      string
}

// PageSnapshot is a point-in-time capture of a page and its accessible
// frames. Snapshots are produced fresh on every scan and never compared
// across page loads; the elements they describe may go stale at any time.
type PageSnapshot struct {
	URL   string
	Title string
	Docs  []Doc
}

// FieldKind classifies a form field by its element/type.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldTextarea FieldKind = "textarea"
	FieldSelect   FieldKind = "select"
	FieldCheckbox FieldKind = "checkbox"
	FieldRadio    FieldKind = "radio"
	FieldFile     FieldKind = "file"
)

// Field describes one fillable form field found in a document.
type Field struct {
	Path        string
	Kind        FieldKind
	Type        string
	Name        string
	Label       string
	Placeholder string
	Required    bool
	Disabled    bool
	Checked     bool
	Value       string
	Options     []Option
}

// Option is one choice of a select element.
type Option struct {
	Value string
	Text  string
}

// Context returns the combined label/name/placeholder text used for
// intent classification.
func (f Field) Context() string {
	parts := []string{f.Label, humanizeName(f.Name), f.Placeholder}
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CollapseWhitespace(p)
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		out = append(out, p)
	}
	return strings.Join(out, " ")
}

// Control describes one clickable candidate found in a document.
type Control struct {
	Path   string
	Tag    string
	Type   string
	Label  string
	InForm bool
	Href   string
}

// RadioGroup is a set of radio inputs sharing a name, with the question
// text derived from the enclosing fieldset or group container.
type RadioGroup struct {
	Name     string
	Question string
	Options  []RadioOption
}

// RadioOption is one selectable radio input within a group.
type RadioOption struct {
	Path    string
	Label   string
	Checked bool
}

var wsRE = regexp.MustCompile(`\s+`)

// CollapseWhitespace trims and collapses all whitespace runs to single spaces.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(wsRE.ReplaceAllString(s, " "))
}

// Truncate shortens s to at most n bytes without splitting a multi-byte
// rune. A string already within the limit is returned unchanged.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Signature normalizes a control label into a stable key for
// "already tried" bookkeeping: lowercased, whitespace-collapsed, truncated.
func Signature(label string) string {
	return Truncate(strings.ToLower(CollapseWhitespace(label)), 64)
}

// ScanFields enumerates visible, fillable fields in the document, optionally
// scoped to the subtree matching scope.
func ScanFields(d Doc, scope string) []Field {
	root := parseScoped(d.HTML, scope)
	if root == nil {
		return nil
	}
	var fields []Field
	root.Find("input, textarea, select").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		typ := strings.ToLower(s.AttrOr("type", ""))
		if tag == "input" && typ == "hidden" {
			return
		}
		if isHidden(s) {
			return
		}
		f := Field{
			Path:        joinFramePath(d.FramePath, cssPath(s)),
			Type:        typ,
			Name:        s.AttrOr("name", ""),
			Placeholder: s.AttrOr("placeholder", ""),
			Required:    hasAttr(s, "required") || s.AttrOr("aria-required", "") == "true",
			Disabled:    hasAttr(s, "disabled") || s.AttrOr("aria-disabled", "") == "true",
			Label:       deriveLabel(s),
		}
		switch {
		case tag == "textarea":
			f.Kind = FieldTextarea
			f.Value = CollapseWhitespace(s.Text())
		case tag == "select":
			f.Kind = FieldSelect
			s.Find("option").Each(func(_ int, o *goquery.Selection) {
				f.Options = append(f.Options, Option{
					Value: o.AttrOr("value", CollapseWhitespace(o.Text())),
					Text:  CollapseWhitespace(o.Text()),
				})
				if hasAttr(o, "selected") {
					f.Value = o.AttrOr("value", CollapseWhitespace(o.Text()))
				}
			})
		case typ == "checkbox":
			f.Kind = FieldCheckbox
			f.Checked = hasAttr(s, "checked")
		case typ == "radio":
			f.Kind = FieldRadio
			f.Checked = hasAttr(s, "checked")
			f.Value = s.AttrOr("value", "")
		case typ == "file":
			f.Kind = FieldFile
			f.Value = s.AttrOr("value", "")
		default:
			f.Kind = FieldText
			f.Value = s.AttrOr("value", "")
		}
		fields = append(fields, f)
	})
	return fields
}

// Clickable control selectors, matching native buttons, submit inputs and
// button-role anchors. Plain anchors are admitted only when their text looks
// actionable; the ranker applies the full exclusion table afterwards.
var anchorActionRE = regexp.MustCompile(`(?i)\b(apply|continue|next|submit|start|begin|review|send)\b`)

// ScanControls enumerates visible, enabled clickable candidates in the
// document, optionally scoped to the subtree matching scope.
func ScanControls(d Doc, scope string) []Control {
	root := parseScoped(d.HTML, scope)
	if root == nil {
		return nil
	}
	var controls []Control
	root.Find(`button, input[type="submit"], input[type="button"], a`).Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if isHidden(s) || hasAttr(s, "disabled") || s.AttrOr("aria-disabled", "") == "true" {
			return
		}
		label := combinedControlText(s)
		if label == "" {
			return
		}
		if tag == "a" && s.AttrOr("role", "") != "button" && !anchorActionRE.MatchString(label) {
			return
		}
		controls = append(controls, Control{
			Path:   joinFramePath(d.FramePath, cssPath(s)),
			Tag:    tag,
			Type:   strings.ToLower(s.AttrOr("type", "")),
			Label:  label,
			InForm: s.Closest("form").Length() > 0,
			Href:   s.AttrOr("href", ""),
		})
	})
	return controls
}

// ScanRadioGroups groups visible radio inputs by name and derives each
// group's question text.
func ScanRadioGroups(d Doc, scope string) []RadioGroup {
	root := parseScoped(d.HTML, scope)
	if root == nil {
		return nil
	}
	groups := map[string]*RadioGroup{}
	var order []string
	root.Find(`input[type="radio"]`).Each(func(_ int, s *goquery.Selection) {
		if isHidden(s) || hasAttr(s, "disabled") {
			return
		}
		name := s.AttrOr("name", "")
		g, ok := groups[name]
		if !ok {
			g = &RadioGroup{Name: name, Question: radioQuestion(s)}
			groups[name] = g
			order = append(order, name)
		}
		label := deriveLabel(s)
		if label == "" {
			label = s.AttrOr("value", "")
		}
		g.Options = append(g.Options, RadioOption{
			Path:    joinFramePath(d.FramePath, cssPath(s)),
			Label:   label,
			Checked: hasAttr(s, "checked"),
		})
	})
	out := make([]RadioGroup, 0, len(order))
	for _, name := range order {
		out = append(out, *groups[name])
	}
	return out
}

// BodyText returns the normalized visible text of the document body.
func BodyText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	body := doc.Find("body")
	if body.Length() == 0 {
		return CollapseWhitespace(doc.Text())
	}
	return CollapseWhitespace(body.Text())
}

// Fields scans all documents of the snapshot.
func (p *PageSnapshot) Fields(scope string) []Field {
	var out []Field
	for _, d := range p.Docs {
		out = append(out, ScanFields(d, scope)...)
	}
	return out
}

// Controls scans all documents of the snapshot.
func (p *PageSnapshot) Controls(scope string) []Control {
	var out []Control
	for _, d := range p.Docs {
		out = append(out, ScanControls(d, scope)...)
	}
	return out
}

// RadioGroups scans all documents of the snapshot.
func (p *PageSnapshot) RadioGroups(scope string) []RadioGroup {
	var out []RadioGroup
	for _, d := range p.Docs {
		out = append(out, ScanRadioGroups(d, scope)...)
	}
	return out
}

// BodyText returns the combined normalized text across all documents.
func (p *PageSnapshot) BodyText() string {
	var parts []string
	for _, d := range p.Docs {
		if t := BodyText(d.HTML); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

const fingerprintSnippet = 280

// Fingerprint derives the no-progress fingerprint: URL stripped of query
// and fragment, plus title, plus a truncated normalized body-text snippet.
// Equality of fingerprints across an attempted action means no progress.
func (p *PageSnapshot) Fingerprint() string {
	text := Truncate(p.BodyText(), fingerprintSnippet)
	return StripURL(p.URL) + "|" + CollapseWhitespace(p.Title) + "|" + text
}

// StripURL removes the query and fragment from a URL for fingerprinting.
func StripURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func parseScoped(html, scope string) *goquery.Selection {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	if scope == "" {
		return doc.Selection
	}
	sel := doc.Find(scope)
	if sel.Length() == 0 {
		return nil
	}
	return sel.First()
}

func hasAttr(s *goquery.Selection, name string) bool {
	_, ok := s.Attr(name)
	return ok
}

var hiddenStyleRE = regexp.MustCompile(`display\s*:\s*none|visibility\s*:\s*hidden`)

// isHidden applies a static-HTML visibility heuristic: explicit hidden
// attributes and inline styles on the element or its ancestors. Computed
// styles are out of reach without a live renderer.
func isHidden(s *goquery.Selection) bool {
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		name := goquery.NodeName(cur)
		if name == "html" || name == "#document" {
			break
		}
		if hasAttr(cur, "hidden") || cur.AttrOr("aria-hidden", "") == "true" {
			return true
		}
		if hiddenStyleRE.MatchString(strings.ToLower(cur.AttrOr("style", ""))) {
			return true
		}
	}
	return false
}

var simpleIDRE = regexp.MustCompile(`^[A-Za-z][\w-]*$`)

// cssPath synthesizes a css selector path for the element so the browser
// layer can act on it later. An id anchors the path when it is selector-safe.
func cssPath(s *goquery.Selection) string {
	var segments []string
	for cur := s; cur.Length() > 0; cur = cur.Parent() {
		tag := goquery.NodeName(cur)
		if tag == "" || tag == "html" || tag == "#document" || tag == "body" {
			break
		}
		if id := cur.AttrOr("id", ""); simpleIDRE.MatchString(id) {
			segments = append(segments, "#"+id)
			reverse(segments)
			return strings.Join(segments, " > ")
		}
		n := 1
		cur.PrevAll().Each(func(_ int, sib *goquery.Selection) {
			if goquery.NodeName(sib) == tag {
				n++
			}
		})
		segments = append(segments, tag+":nth-of-type("+itoa(n)+")")
	}
	reverse(segments)
	if len(segments) == 0 {
		return goquery.NodeName(s)
	}
	return "body > " + strings.Join(segments, " > ")
}

func reverse(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b [8]byte
	i := len(b)
	for n > 0 {
		i--
		b[i] = byte('0' + n%10)
		n /= 10
	}
	return string(b[i:])
}

func joinFramePath(framePath, path string) string {
	if framePath == "" {
		return path
	}
	return framePath + " >>> " + path
}

// deriveLabel extracts the human-readable label for a field: label[for],
// wrapping label, aria-label, then nothing. Placeholder and name are kept
// separate so the classifier can weigh them independently.
func deriveLabel(s *goquery.Selection) string {
	if aria := s.AttrOr("aria-label", ""); aria != "" {
		return CollapseWhitespace(aria)
	}
	if id := s.AttrOr("id", ""); id != "" {
		root := s.Parents().Last()
		if root.Length() == 0 {
			root = s
		}
		lbl := root.Find(`label[for="` + id + `"]`)
		if lbl.Length() > 0 {
			return CollapseWhitespace(lbl.First().Text())
		}
	}
	if wrap := s.Closest("label"); wrap.Length() > 0 {
		return CollapseWhitespace(wrap.Text())
	}
	return ""
}

// radioQuestion derives the question text for a radio input from its
// enclosing fieldset legend or grouping container.
func radioQuestion(s *goquery.Selection) string {
	if fs := s.Closest("fieldset"); fs.Length() > 0 {
		if legend := fs.Find("legend"); legend.Length() > 0 {
			return CollapseWhitespace(legend.First().Text())
		}
		return CollapseWhitespace(fs.Text())
	}
	if grp := s.Closest(`[role="group"], [role="radiogroup"]`); grp.Length() > 0 {
		if aria := grp.AttrOr("aria-label", ""); aria != "" {
			return CollapseWhitespace(aria)
		}
		return CollapseWhitespace(grp.Text())
	}
	return ""
}

// combinedControlText joins the signal text of a clickable control:
// visible text, aria-label, and the value attribute for input buttons.
func combinedControlText(s *goquery.Selection) string {
	parts := []string{s.Text(), s.AttrOr("aria-label", ""), s.AttrOr("value", ""), s.AttrOr("title", "")}
	seen := map[string]bool{}
	var out []string
	for _, p := range parts {
		p = CollapseWhitespace(p)
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		out = append(out, p)
	}
	return strings.Join(out, " ")
}

var nameSepRE = regexp.MustCompile(`[_\-\[\].]+`)

// humanizeName turns a form field name attribute into words.
func humanizeName(name string) string {
	return CollapseWhitespace(nameSepRE.ReplaceAllString(name, " "))
}
