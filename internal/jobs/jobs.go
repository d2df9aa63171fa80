package jobs

import (
	"strings"

	"github.com/mohammad-safakhou/jobagent/internal/dom"
)

// Posting captures the context of one opened job posting. It is recreated
// every time a card is opened and discarded when the controller moves on.
type Posting struct {
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
}

const descriptionLimit = 1200

// Truncated returns a copy of the posting with the description snipped to a
// size safe for prompt building.
func (p Posting) Truncated() Posting {
	p.Description = dom.Truncate(p.Description, descriptionLimit)
	return p
}

// IdentityKey derives the dedupe key for a posting: normalized lowercase
// title+company+location. Job lists re-render mid-session and the same
// posting can appear twice with distinct DOM nodes.
func (p Posting) IdentityKey() string {
	join := p.Title + "|" + p.Company + "|" + p.Location
	return strings.Join(strings.Fields(strings.ToLower(join)), " ")
}

// Outcome is the terminal result of processing one job card.
type Outcome string

const (
	OutcomeApplied    Outcome = "applied"
	OutcomeFailed     Outcome = "failed"
	OutcomeManualHelp Outcome = "manual-help"
	OutcomeSkipped    Outcome = "skipped"
)

// Counters aggregates outcomes over one search session.
type Counters struct {
	Applied    int
	Failed     int
	ManualHelp int
	Skipped    int
}

// Add records one outcome.
func (c *Counters) Add(o Outcome) {
	switch o {
	case OutcomeApplied:
		c.Applied++
	case OutcomeFailed:
		c.Failed++
	case OutcomeManualHelp:
		c.ManualHelp++
	case OutcomeSkipped:
		c.Skipped++
	}
}

// Total returns the number of outcomes recorded.
func (c Counters) Total() int {
	return c.Applied + c.Failed + c.ManualHelp + c.Skipped
}
