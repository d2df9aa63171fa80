package ranker

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"sort"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/mohammad-safakhou/jobagent/internal/dom"
	"github.com/mohammad-safakhou/jobagent/provider"
)

// Candidate is an ephemeral scored clickable control. Candidates are
// produced fresh on every scan and never compared across page loads.
type Candidate struct {
	Control   dom.Control
	Score     int
	Signature string
}

const topCandidates = 8

// Keyword tiers, highest applicable bonus wins.
var tierBonuses = []struct {
	keywords []string
	bonus    int
}{
	{[]string{"submit application", "submit your application"}, 120},
	{[]string{"submit"}, 110},
	{[]string{"complete application", "finish application"}, 100},
	{[]string{"start application", "begin application"}, 95},
	{[]string{"apply now"}, 90},
}

var (
	negativeWordRE = regexp.MustCompile(`(?i)\b(cancel|close|discard|back|dismiss|exit)\b`)
	sendWordRE     = regexp.MustCompile(`(?i)\bsend\b`)
	reviewWordRE   = regexp.MustCompile(`(?i)\breview\b`)
	progressWordRE = regexp.MustCompile(`(?i)\b(continue|next)\b`)
)

var informationalPhrases = []string{
	"how to apply", "learn more", "faq", "frequently asked", "job details",
	"about the role", "read more",
}

var authPhrases = []string{
	"sign in", "log in", "login", "sign up", "create account", "create an account",
	"register", "continue with google", "continue with apple", "continue with linkedin",
	"continue with facebook", "use your account",
}

var utilityPhrases = []string{
	"choose file", "upload file", "attach file", "share", "copy link", "save job", "save for later",
}

var helpHrefRE = regexp.MustCompile(`(?i)(help|faq|how[-_]?to[-_]?apply|support)`)

// excluded reports whether a control must never be selected, for any score.
func excluded(label string) bool {
	lower := strings.ToLower(label)
	for _, p := range informationalPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, p := range authPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	for _, p := range utilityPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return negativeWordRE.MatchString(label)
}

// score computes the heuristic score for one control. Non-positive scores
// are discarded by the caller.
func score(c dom.Control) int {
	s := 0
	if c.InForm {
		s += 25
	}
	if c.Tag == "button" || c.Tag == "input" {
		s += 10
	}
	if c.Type == "submit" {
		s += 40
	}

	lower := strings.ToLower(c.Label)
	bonus := 0
	for _, tier := range tierBonuses {
		for _, kw := range tier.keywords {
			if strings.Contains(lower, kw) {
				bonus = tier.bonus
				break
			}
		}
		if bonus > 0 {
			break
		}
	}
	if bonus == 0 {
		switch {
		case strings.TrimSpace(lower) == "apply":
			bonus = 80
		case sendWordRE.MatchString(c.Label):
			bonus = 78
		case progressWordRE.MatchString(c.Label):
			bonus = 70
		case reviewWordRE.MatchString(c.Label):
			bonus = 65
		case strings.Contains(lower, "apply"):
			bonus = 45
		}
	}
	s += bonus

	if c.Href != "" && helpHrefRE.MatchString(c.Href) {
		s -= 100
	}
	if isExternalHref(c.Href) && !c.InForm && !strings.Contains(lower, "apply") && !strings.Contains(lower, "job") {
		s -= 40
	}
	return s
}

func isExternalHref(href string) bool {
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// Rank scans the snapshot for clickable candidates, applies the exclusion
// table and the excludeSignatures set, scores the rest, and returns them in
// descending score order.
func Rank(snap *dom.PageSnapshot, excludeSignatures map[string]bool) []Candidate {
	var out []Candidate
	for _, c := range snap.Controls("") {
		if excluded(c.Label) {
			continue
		}
		sig := dom.Signature(c.Label)
		if excludeSignatures[sig] {
			continue
		}
		sc := score(c)
		if sc <= 0 {
			continue
		}
		out = append(out, Candidate{Control: c, Score: sc, Signature: sig})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// FindBest returns the heuristic top pick, or nil when nothing actionable
// survives filtering.
func FindBest(snap *dom.PageSnapshot, excludeSignatures map[string]bool) *Candidate {
	ranked := Rank(snap, excludeSignatures)
	if len(ranked) == 0 {
		return nil
	}
	return &ranked[0]
}

// Ranker adds the optional model tie-break on top of the heuristic ranking.
// The model may override the top pick among the best candidates; it is never
// the sole decision path, so behavior stays deterministic when the model is
// unavailable.
type Ranker struct {
	provider provider.Provider
	logger   *log.Logger
	metrics  provider.CallObserver
}

// NewRanker creates a ranker. provider may be nil.
func NewRanker(p provider.Provider, logger *log.Logger) *Ranker {
	if logger == nil {
		logger = log.New(log.Writer(), "[RANKER] ", log.LstdFlags)
	}
	return &Ranker{provider: p, logger: logger}
}

// SetMetrics installs an observer counting model consultations. A nil
// observer disables counting.
func (r *Ranker) SetMetrics(obs provider.CallObserver) { r.metrics = obs }

func (r *Ranker) record(result string) {
	if r.metrics != nil {
		r.metrics.RecordLLMCall("action_pick", result)
	}
}

// pickResponse is the structured answer expected from the model.
type pickResponse struct {
	Index  int    `json:"index"`
	Intent string `json:"intent"`
	Reason string `json:"reason"`
}

const pickSystemPrompt = `You choose which control a job-application automation should click next.
Given a numbered list of clickable candidates and a snippet of the page text,
pick the control most likely to advance or submit the application.
Respond ONLY with JSON: {"index": <number>, "intent": "submit"|"progress"|"start"|"none", "reason": "<short>"}.
Use intent "none" and index -1 when no candidate should be clicked.`

const pageSnippetLimit = 600

// FindBestAction returns the best next action for the page: the heuristic
// top pick, optionally overridden by the model choosing among the top
// candidates. Model failures silently fall back to the heuristic pick.
func (r *Ranker) FindBestAction(ctx context.Context, snap *dom.PageSnapshot, excludeSignatures map[string]bool) *Candidate {
	ranked := Rank(snap, excludeSignatures)
	if len(ranked) == 0 {
		return nil
	}
	if len(ranked) > topCandidates {
		ranked = ranked[:topCandidates]
	}
	if r.provider == nil || !r.provider.Available(ctx) || len(ranked) == 1 {
		return &ranked[0]
	}

	var b strings.Builder
	b.WriteString("Candidates:\n")
	for i, c := range ranked {
		fmt.Fprintf(&b, "%d) %q (heuristic score %d)\n", i, c.Control.Label, c.Score)
	}
	fmt.Fprintf(&b, "\nPage text snippet:\n%s\n", pageSnippet(snap))

	var resp pickResponse
	if err := provider.GenerateStructured(ctx, r.provider, pickSystemPrompt, b.String(), &resp); err != nil {
		r.record("error")
		r.logger.Printf("model tie-break failed, using heuristic pick: %v", err)
		return &ranked[0]
	}
	if resp.Intent == "none" || resp.Index < 0 || resp.Index >= len(ranked) {
		r.record("fallback")
		return &ranked[0]
	}
	r.record("ok")
	return &ranked[resp.Index]
}

// pageSnippet extracts readable page text for the model prompt, preferring
// a readability pass over the raw body text.
func pageSnippet(snap *dom.PageSnapshot) string {
	text := ""
	if len(snap.Docs) > 0 {
		if u, err := url.Parse(snap.URL); err == nil {
			if article, err := readability.FromReader(strings.NewReader(snap.Docs[0].HTML), u); err == nil {
				text = dom.CollapseWhitespace(article.TextContent)
			}
		}
	}
	if text == "" {
		text = snap.BodyText()
	}
	return dom.Truncate(text, pageSnippetLimit)
}
