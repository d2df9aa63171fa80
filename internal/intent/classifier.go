package intent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/jobagent/config"
	"github.com/mohammad-safakhou/jobagent/internal/dom"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
	"github.com/mohammad-safakhou/jobagent/provider"
)

// Intent is the semantic category of a form field.
type Intent string

const (
	IntentEmail       Intent = "email"
	IntentPhone       Intent = "phone"
	IntentSalary      Intent = "salary"
	IntentLocation    Intent = "location"
	IntentNotice      Intent = "notice"
	IntentLinkedIn    Intent = "linkedin"
	IntentPortfolio   Intent = "portfolio"
	IntentVisa        Intent = "visa"
	IntentSponsorship Intent = "sponsorship"
	IntentRelocation  Intent = "relocation"
	IntentExperience  Intent = "experience"
	IntentName        Intent = "name"
	IntentConsent     Intent = "consent"
	IntentGeneric     Intent = "generic"
)

// rule pairs a predicate with its category. Rules are evaluated in order
// and the first match wins; the order is part of the contract.
type rule struct {
	intent   Intent
	keywords []string
}

var rules = []rule{
	{IntentEmail, []string{"email", "e-mail"}},
	{IntentPhone, []string{"phone", "mobile", "contact number"}},
	{IntentSalary, []string{"salary", "compensation", "expected pay", "pay rate", "remuneration", "ctc"}},
	{IntentLocation, []string{"location", "city", "where are you based", "current address"}},
	{IntentNotice, []string{"notice period", "notice", "start date", "when can you start", "availability to start", "joining date"}},
	{IntentLinkedIn, []string{"linkedin"}},
	{IntentPortfolio, []string{"portfolio", "personal website", "website", "github"}},
	{IntentVisa, []string{"visa status", "work authorization", "work authorisation", "right to work", "authorized to work", "authorised to work", "work permit", "citizenship"}},
	{IntentSponsorship, []string{"sponsor"}},
	{IntentRelocation, []string{"relocat", "willing to move"}},
	{IntentExperience, []string{"years of experience", "how many years", "experience"}},
	{IntentName, []string{"full name", "first name", "last name", "given name", "your name", "surname", "name"}},
	{IntentConsent, []string{"i agree", "terms", "privacy", "consent", "gdpr"}},
}

// Classify determines the semantic category of a field from its combined
// label/name/placeholder text and optional declared type.
func Classify(fieldContext, declaredType string) Intent {
	switch strings.ToLower(declaredType) {
	case "email":
		return IntentEmail
	case "tel":
		return IntentPhone
	}
	text := strings.ToLower(fieldContext)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.intent
			}
		}
	}
	return IntentGeneric
}

// heuristicPreferred marks intents whose configured answers are unambiguous:
// a wrong model answer is worse than a stable default, so the model is never
// consulted for them.
var heuristicPreferred = map[Intent]bool{
	IntentSponsorship: true,
	IntentRelocation:  true,
	IntentVisa:        true,
	IntentExperience:  true,
	IntentLocation:    true,
	IntentLinkedIn:    true,
	IntentPortfolio:   true,
	IntentEmail:       true,
	IntentPhone:       true,
	IntentName:        true,
	IntentNotice:      true,
	IntentConsent:     true,
}

// Classifier resolves values for form fields from the candidate profile,
// an optional language-inference provider, and the current job context.
// Inferred answers are cached per job posting and keyed by field type.
type Classifier struct {
	hints    config.ProfileConfig
	provider provider.Provider
	logger   *log.Logger
	metrics  provider.CallObserver
	job      jobs.Posting
	cache    map[string]string
}

// New creates a classifier. provider may be nil: every path degrades to a
// heuristic value or to leaving the field unfilled.
func New(hints config.ProfileConfig, p provider.Provider, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.New(log.Writer(), "[INTENT] ", log.LstdFlags)
	}
	return &Classifier{
		hints:    hints,
		provider: p,
		logger:   logger,
		cache:    make(map[string]string),
	}
}

// SetMetrics installs an observer counting model consultations. A nil
// observer disables counting.
func (c *Classifier) SetMetrics(obs provider.CallObserver) { c.metrics = obs }

func (c *Classifier) record(operation, result string) {
	if c.metrics != nil {
		c.metrics.RecordLLMCall(operation, result)
	}
}

// SetJob installs the context of the currently opened posting and clears
// the inferred-answer cache; answers are not reusable across postings.
func (c *Classifier) SetJob(job jobs.Posting) {
	c.job = job.Truncated()
	c.cache = make(map[string]string)
}

// Job returns the current posting context.
func (c *Classifier) Job() jobs.Posting { return c.job }

const (
	answerLimit   = 220
	cacheKeyLimit = 160
)

// ResolveValue produces the value to type into a field, or "" when the
// field should be left unfilled. It never fails hard: an unanswerable
// field must not abort the surrounding flow.
func (c *Classifier) ResolveValue(ctx context.Context, fieldContext, declaredType string) string {
	in := Classify(fieldContext, declaredType)

	if heuristicPreferred[in] {
		return c.heuristicValue(in)
	}

	key := cacheKey(declaredType, fieldContext)
	if cached, ok := c.cache[key]; ok {
		return cached
	}

	value := ""
	if c.provider != nil && c.provider.Available(ctx) {
		raw, err := c.provider.Generate(ctx, c.buildPrompt(fieldContext, declaredType, in))
		if err != nil {
			c.record("field_answer", "error")
			c.logger.Printf("inference failed for %q: %v", dom.CollapseWhitespace(fieldContext), err)
		} else {
			value = postprocess(raw, declaredType)
			if value != "" {
				if normalized, ok := validate(in, declaredType, value); ok {
					value = normalized
				} else {
					value = ""
				}
			}
			if value != "" {
				c.record("field_answer", "ok")
			} else {
				c.record("field_answer", "fallback")
			}
		}
	}
	if value == "" {
		value = c.heuristicValue(in)
	}

	c.cache[key] = value
	return value
}

// heuristicValue maps an intent to its static profile answer. An empty
// result means there is no safe default and the field is skipped.
func (c *Classifier) heuristicValue(in Intent) string {
	switch in {
	case IntentEmail:
		return c.hints.Email
	case IntentPhone:
		return c.hints.Phone
	case IntentName:
		return c.hints.FullName
	case IntentLocation:
		return c.hints.Location
	case IntentLinkedIn:
		return c.hints.LinkedInURL
	case IntentPortfolio:
		return c.hints.PortfolioURL
	case IntentVisa:
		return c.hints.VisaStatus
	case IntentExperience:
		return c.hints.YearsExperience
	case IntentNotice:
		return c.hints.NoticePeriod
	case IntentSponsorship:
		return yesNo(c.hints.NeedsSponsorship)
	case IntentRelocation:
		return yesNo(c.hints.WillingToRelocate)
	case IntentConsent:
		return "Yes"
	case IntentSalary:
		return c.ExpectedSalaryFallback()
	default:
		return ""
	}
}

// PreferredBooleanAnswer maps a radio-group question to the word the
// selected option's label should contain. The second return is false when
// the question matches no known pattern.
func (c *Classifier) PreferredBooleanAnswer(question string) (string, bool) {
	switch Classify(question, "") {
	case IntentSponsorship:
		return yesNo(c.hints.NeedsSponsorship), true
	case IntentRelocation:
		return yesNo(c.hints.WillingToRelocate), true
	case IntentVisa:
		if c.hints.VisaStatus != "" {
			return c.hints.VisaStatus, true
		}
	}
	return "", false
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func cacheKey(declaredType, fieldContext string) string {
	ctxText := dom.Truncate(strings.ToLower(dom.CollapseWhitespace(fieldContext)), cacheKeyLimit)
	return strings.ToLower(declaredType) + "|" + ctxText
}

func (c *Classifier) buildPrompt(fieldContext, declaredType string, in Intent) string {
	var b strings.Builder
	b.WriteString("You are filling a job application form on behalf of a candidate.\n")
	b.WriteString("Answer the form field below with a single value. No explanation, no quotes.\n\n")
	fmt.Fprintf(&b, "Field hint: %s\n", dom.CollapseWhitespace(fieldContext))
	if declaredType != "" {
		fmt.Fprintf(&b, "Field type: %s\n", declaredType)
	}
	fmt.Fprintf(&b, "Detected category: %s\n\n", in)
	b.WriteString("Candidate profile:\n")
	fmt.Fprintf(&b, "  Name: %s\n  Email: %s\n  Phone: %s\n  Location: %s\n", c.hints.FullName, c.hints.Email, c.hints.Phone, c.hints.Location)
	fmt.Fprintf(&b, "  Years of experience: %s\n  Visa status: %s\n  Needs sponsorship: %s\n  Willing to relocate: %s\n",
		c.hints.YearsExperience, c.hints.VisaStatus, yesNo(c.hints.NeedsSponsorship), yesNo(c.hints.WillingToRelocate))
	if c.job.Title != "" {
		fmt.Fprintf(&b, "\nJob being applied to:\n  Title: %s\n  Company: %s\n  Location: %s\n  Description: %s\n",
			c.job.Title, c.job.Company, c.job.Location, c.job.Description)
	}
	b.WriteString("\nValue:")
	return b.String()
}

var numericTokenRE = regexp.MustCompile(`\d+(?:\.\d+)?`)

// postprocess cleans a raw model answer: strips wrapping quotes, collapses
// whitespace, truncates, and reduces numeric fields to the first numeric
// token. An empty result means the answer was unusable.
func postprocess(raw, declaredType string) string {
	s := dom.CollapseWhitespace(raw)
	s = strings.Trim(s, `"'`)
	s = dom.CollapseWhitespace(s)
	s = dom.Truncate(s, answerLimit)
	if strings.EqualFold(declaredType, "number") {
		return numericTokenRE.FindString(s)
	}
	return s
}

var (
	currencySignalRE = regexp.MustCompile(`(?i)(\$|€|£|aud|usd|inr|eur|gbp)|\d`)
	bareNumberRE     = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
)

// validate checks a candidate answer against the expected shape for its
// intent. It returns the (possibly normalized) value and whether it passed.
func validate(in Intent, declaredType, value string) (string, bool) {
	switch in {
	case IntentSalary:
		return value, currencySignalRE.MatchString(value)
	case IntentSponsorship, IntentRelocation, IntentConsent:
		lower := strings.ToLower(value)
		if strings.Contains(lower, "yes") {
			return "Yes", true
		}
		if strings.Contains(lower, "no") {
			return "No", true
		}
		return "", false
	}
	if strings.EqualFold(declaredType, "number") {
		return value, bareNumberRE.MatchString(value)
	}
	return value, true
}
