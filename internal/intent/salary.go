package intent

import (
	"regexp"
	"strings"
)

// Figures used when no explicit salary appears in the posting. Ballpark
// market rates; the point is that the field is never left empty because a
// model was unavailable.
const (
	salaryAustralia = "AUD 130000"
	salaryIndia     = "INR 3000000"
	salaryDefault   = "USD 110000"
)

// salaryRangeRE matches an explicit currency figure or range in posting
// text, e.g. "$120,000 - $140,000", "AUD 130k", "€90.000".
var salaryRangeRE = regexp.MustCompile(`(?i)(?:\$|€|£|aud|usd|inr|eur|gbp)\s?\d[\d,.]*\s*k?(?:\s*(?:-|–|to)\s*(?:\$|€|£|aud|usd|inr|eur|gbp)?\s?\d[\d,.]*\s*k?)?`)

var (
	australiaKeywords = []string{"australia", "sydney", "melbourne", "brisbane", "perth", "adelaide", "canberra"}
	indiaKeywords     = []string{"india", "bengaluru", "bangalore", "mumbai", "delhi", "hyderabad", "pune", "chennai", "gurgaon", "noida"}
)

// ExpectedSalaryFallback answers a salary field without a model: an explicit
// figure from the posting wins, then a country-keyword branch, then a
// generic default.
func (c *Classifier) ExpectedSalaryFallback() string {
	text := c.job.Location + " " + c.job.Description
	if m := salaryRangeRE.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	lower := strings.ToLower(text)
	for _, kw := range australiaKeywords {
		if strings.Contains(lower, kw) {
			return salaryAustralia
		}
	}
	for _, kw := range indiaKeywords {
		if strings.Contains(lower, kw) {
			return salaryIndia
		}
	}
	return salaryDefault
}
