package boards

import (
	"strings"

	"github.com/mohammad-safakhou/jobagent/internal/jobs"
)

// Descriptor names the selectors one job board uses for its search-results
// view. The controller and flow drivers stay board-agnostic by reading
// everything board-specific from here.
type Descriptor struct {
	Name   string
	Domain string

	// Search-results view.
	CardSelector        string
	TitleSelector       string
	CompanySelector     string
	LocationSelector    string
	DescriptionSelector string

	// Apply triggers inside an opened posting.
	EasyApplySelector     string
	ExternalApplySelector string

	// Easy-apply wizard.
	ModalSelector         string
	FollowCompanySelector string
	SuccessIndicators     []string
	ErrorRegionSelector   string
}

// Generic is a selector set built from common markup conventions; it is the
// default when no board-specific descriptor is registered.
var Generic = Descriptor{
	Name:                  "generic",
	CardSelector:          `[data-job-id], .job-card, li.result`,
	TitleSelector:         `h1, h2, .job-title, [data-testid="job-title"]`,
	CompanySelector:       `.company, .company-name, [data-testid="company-name"]`,
	LocationSelector:      `.location, .job-location, [data-testid="job-location"]`,
	DescriptionSelector:   `.description, .job-description, [data-testid="job-description"]`,
	EasyApplySelector:     `button.easy-apply, [data-testid="easy-apply"]`,
	ExternalApplySelector: `a.apply-external, [data-testid="apply-external"]`,
	ModalSelector:         `[role="dialog"], .modal, .application-modal`,
	FollowCompanySelector: `input[type="checkbox"][name*="follow"]`,
	SuccessIndicators:     []string{"application submitted", "application sent", "your application was sent"},
	ErrorRegionSelector:   `[role="alert"], .error-message, .field-error`,
}

var registry = map[string]Descriptor{
	"generic": Generic,
}

// Lookup returns the descriptor registered under name, falling back to the
// generic selector set.
func Lookup(name string) Descriptor {
	if d, ok := registry[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d
	}
	return Generic
}

// IsBoardURL reports whether a URL belongs to the board's own domain. An
// empty domain treats every URL containing the search URL's host as the
// board, which the caller decides.
func (d Descriptor) IsBoardURL(url string) bool {
	if d.Domain == "" {
		return false
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(d.Domain))
}

// SampleSearch is an illustrative search source returning hardcoded sample
// postings. Real scraping is out of scope; this exists so the pipeline can
// be exercised end to end without a live board.
func SampleSearch(terms []string, location string) []jobs.Posting {
	postings := []jobs.Posting{
		{
			Title:       "Senior Backend Engineer",
			Company:     "Northwind Systems",
			Location:    "Sydney, Australia",
			Description: "Own our Go services and the data pipeline behind them. Postgres, Kafka, Kubernetes.",
			URL:         "https://boards.example.com/jobs/northwind-senior-backend",
		},
		{
			Title:       "Platform Engineer",
			Company:     "Contoso Cloud",
			Location:    "Bengaluru, India",
			Description: "Build internal developer tooling in Go. CTC commensurate with experience.",
			URL:         "https://boards.example.com/jobs/contoso-platform",
		},
		{
			Title:       "Site Reliability Engineer",
			Company:     "Fabrikam",
			Location:    "Remote",
			Description: "Keep a global fleet healthy. On-call, observability, automation in Go and Python.",
			URL:         "https://boards.example.com/jobs/fabrikam-sre",
		},
	}
	if len(terms) == 0 {
		return postings
	}
	var out []jobs.Posting
	for _, p := range postings {
		haystack := strings.ToLower(p.Title + " " + p.Description)
		for _, t := range terms {
			if strings.Contains(haystack, strings.ToLower(strings.TrimSpace(t))) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
