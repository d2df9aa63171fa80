package flow

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/mohammad-safakhou/jobagent/internal/browser"
	"github.com/mohammad-safakhou/jobagent/internal/dom"
	"github.com/mohammad-safakhou/jobagent/internal/intent"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
)

// Result is the terminal verdict of one driver run, with a human-readable
// reason surfaced alongside the session counters.
type Result struct {
	Outcome jobs.Outcome
	Reason  string
}

// successOutcome maps a successful submission to its reportable outcome:
// assisted runs stay distinguishable from unattended ones.
func successOutcome(usedHelp bool) jobs.Outcome {
	if usedHelp {
		return jobs.OutcomeManualHelp
	}
	return jobs.OutcomeApplied
}

type fillOptions struct {
	// scope restricts scanning to a subtree (the modal container); empty
	// scans the whole page and its frames.
	scope string
	// resumePath, when it points at an existing file, is attached to empty
	// file inputs.
	resumePath string
}

// fillFields fills every empty eligible field of the snapshot using the
// intent classifier and returns how many actions were taken. Element errors
// are swallowed: a field that cannot be filled right now is simply left for
// the next pass.
func fillFields(ctx context.Context, page browser.Page, snap *dom.PageSnapshot, cls *intent.Classifier, logger *log.Logger, opts fillOptions) int {
	filled := 0
	for _, f := range snap.Fields(opts.scope) {
		if f.Disabled {
			continue
		}
		switch f.Kind {
		case dom.FieldText, dom.FieldTextarea:
			if f.Value != "" {
				continue
			}
			v := cls.ResolveValue(ctx, f.Context(), f.Type)
			if v == "" {
				continue
			}
			if err := page.Fill(ctx, f.Path, v); err != nil {
				logger.Printf("fill %q skipped: %v", f.Context(), err)
				continue
			}
			filled++
		case dom.FieldSelect:
			if f.Value != "" {
				continue
			}
			v := cls.ResolveValue(ctx, f.Context(), f.Type)
			if v == "" {
				continue
			}
			if err := page.SelectOption(ctx, f.Path, v); err != nil {
				continue
			}
			filled++
		case dom.FieldCheckbox:
			if f.Checked {
				continue
			}
			if !f.Required && intent.Classify(f.Context(), "") != intent.IntentConsent {
				continue
			}
			if err := page.SetChecked(ctx, f.Path, true); err != nil {
				continue
			}
			filled++
		case dom.FieldFile:
			if opts.resumePath == "" || f.Value != "" {
				continue
			}
			if _, err := os.Stat(opts.resumePath); err != nil {
				continue
			}
			if err := page.SetFiles(ctx, f.Path, opts.resumePath); err != nil {
				logger.Printf("resume upload skipped: %v", err)
				continue
			}
			filled++
		case dom.FieldRadio:
			// Radios need group-level question context; resolveRadioGroups
			// handles them.
		}
	}
	return filled
}

// resolveRadioGroups answers every unanswered radio group: the preferred
// option when the group's question matches a known pattern, the first
// option otherwise. After a pass every group with at least one option has
// exactly one option selected.
func resolveRadioGroups(ctx context.Context, page browser.Page, snap *dom.PageSnapshot, cls *intent.Classifier, scope string) int {
	answered := 0
	for _, g := range snap.RadioGroups(scope) {
		if len(g.Options) == 0 {
			continue
		}
		alreadyChecked := false
		for _, o := range g.Options {
			if o.Checked {
				alreadyChecked = true
				break
			}
		}
		if alreadyChecked {
			continue
		}
		pick := g.Options[0]
		if preferred, ok := cls.PreferredBooleanAnswer(g.Question); ok {
			want := strings.ToLower(preferred)
			for _, o := range g.Options {
				if strings.Contains(strings.ToLower(o.Label), want) {
					pick = o
					break
				}
			}
		}
		if err := page.SetChecked(ctx, pick.Path, true); err != nil {
			continue
		}
		answered++
	}
	return answered
}

// unresolvedRequired reports whether any required field is still unanswered:
// empty required text/textarea/select, unchecked required checkbox, or a
// radio group containing a required option with nothing selected.
func unresolvedRequired(fields []dom.Field) bool {
	radioRequired := map[string]bool{}
	radioChecked := map[string]bool{}
	for _, f := range fields {
		if f.Disabled {
			continue
		}
		switch f.Kind {
		case dom.FieldText, dom.FieldTextarea, dom.FieldSelect:
			if f.Required && f.Value == "" {
				return true
			}
		case dom.FieldCheckbox:
			if f.Required && !f.Checked {
				return true
			}
		case dom.FieldRadio:
			if f.Required {
				radioRequired[f.Name] = true
			}
			if f.Checked {
				radioChecked[f.Name] = true
			}
		}
	}
	for name := range radioRequired {
		if !radioChecked[name] {
			return true
		}
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
