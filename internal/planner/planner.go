package planner

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mohammad-safakhou/jobagent/config"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
	"github.com/mohammad-safakhou/jobagent/provider"
)

// Decision is the relevance verdict for one opened posting.
type Decision struct {
	Apply  bool    `json:"apply"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Planner decides whether an opened posting is worth an application
// attempt. With a provider configured the decision is model-driven; without
// one, or when the model call fails, a keyword heuristic over the search
// terms decides.
type Planner struct {
	provider provider.Provider
	profile  config.ProfileConfig
	search   config.SearchConfig
	logger   *log.Logger
	metrics  provider.CallObserver
}

// New creates a planner. provider may be nil.
func New(p provider.Provider, profile config.ProfileConfig, search config.SearchConfig, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{provider: p, profile: profile, search: search, logger: logger}
}

// SetMetrics installs an observer counting model consultations. A nil
// observer disables counting.
func (pl *Planner) SetMetrics(obs provider.CallObserver) { pl.metrics = obs }

func (pl *Planner) record(result string) {
	if pl.metrics != nil {
		pl.metrics.RecordLLMCall("relevance", result)
	}
}

const decisionSystemPrompt = `You screen job postings for a candidate.
Given the candidate profile and a posting, decide whether the candidate
should apply. Respond ONLY with a JSON object:
{"apply": true|false, "score": 0.0-1.0, "reason": "one short sentence"}`

// ShouldApply returns the relevance decision for a posting. It never
// returns an error for model failures; those degrade to the heuristic.
func (pl *Planner) ShouldApply(ctx context.Context, posting jobs.Posting) Decision {
	if pl.provider != nil {
		var d Decision
		err := provider.GenerateStructured(ctx, pl.provider, decisionSystemPrompt, pl.buildPrompt(posting.Truncated()), &d)
		if err == nil && d.Reason != "" {
			pl.record("ok")
			return d
		}
		if err != nil {
			pl.record("error")
			pl.logger.Printf("relevance call failed, using heuristic: %v", err)
		} else {
			pl.record("fallback")
		}
	}
	return pl.heuristicDecision(posting)
}

func (pl *Planner) buildPrompt(posting jobs.Posting) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Candidate: %s, %s experience, based in %s.\n",
		pl.profile.FullName, pl.profile.YearsExperience, pl.profile.Location)
	fmt.Fprintf(&b, "Searching for: %s\n", strings.Join(pl.search.Terms, ", "))
	fmt.Fprintf(&b, "\nPosting:\nTitle: %s\nCompany: %s\nLocation: %s\n",
		posting.Title, posting.Company, posting.Location)
	if posting.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", posting.Description)
	}
	return b.String()
}

// heuristicDecision applies when no model is reachable: any search term
// appearing in the title or description passes the posting.
func (pl *Planner) heuristicDecision(posting jobs.Posting) Decision {
	if len(pl.search.Terms) == 0 {
		return Decision{Apply: true, Score: 0.5, Reason: "no search terms configured"}
	}
	haystack := strings.ToLower(posting.Title + " " + posting.Description)
	for _, term := range pl.search.Terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		if strings.Contains(haystack, term) {
			return Decision{Apply: true, Score: 0.6, Reason: fmt.Sprintf("matches search term %q", term)}
		}
	}
	return Decision{Apply: false, Score: 0.2, Reason: "no search term matched title or description"}
}
