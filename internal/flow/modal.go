package flow

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mohammad-safakhou/jobagent/internal/boards"
	"github.com/mohammad-safakhou/jobagent/internal/browser"
	"github.com/mohammad-safakhou/jobagent/internal/dom"
	"github.com/mohammad-safakhou/jobagent/internal/humanloop"
	"github.com/mohammad-safakhou/jobagent/internal/intent"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
)

// modalStepBudget bounds the wizard loop. Each iteration re-observes state,
// so the bound doubles as the retry mechanism.
const modalStepBudget = 8

const defaultModalTimeout = 10 * time.Second

var (
	submitWordRE = regexp.MustCompile(`(?i)\bsubmit\b`)
	nextWordRE   = regexp.MustCompile(`(?i)\b(next|continue|review)\b`)
	followWordRE = regexp.MustCompile(`(?i)follow`)
)

// ModalDriver runs the in-page "Easy Apply" wizard: fill the current step,
// advance, submit, and escalate to a human when automation cannot satisfy
// the form's validation.
type ModalDriver struct {
	board      boards.Descriptor
	classifier *intent.Classifier
	prompter   humanloop.Prompter
	logger     *log.Logger

	settle       time.Duration
	modalTimeout time.Duration
	resumePath   string
}

// NewModalDriver creates a modal driver.
func NewModalDriver(board boards.Descriptor, cls *intent.Classifier, prompter humanloop.Prompter, resumePath string, settle time.Duration, logger *log.Logger) *ModalDriver {
	if logger == nil {
		logger = log.Default()
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &ModalDriver{
		board:        board,
		classifier:   cls,
		prompter:     prompter,
		logger:       logger,
		settle:       settle,
		modalTimeout: defaultModalTimeout,
		resumePath:   resumePath,
	}
}

// Run drives the wizard on page until a terminal outcome. A run that needed
// human help reports manual-help even when it ultimately submitted, so
// callers can tell unattended successes from assisted ones.
func (m *ModalDriver) Run(ctx context.Context, page browser.Page) Result {
	if err := page.WaitVisible(ctx, m.board.ModalSelector, m.modalTimeout); err != nil {
		return Result{Outcome: jobs.OutcomeFailed, Reason: "application modal never opened"}
	}

	usedHelp := false
	submitClicked := false

	for step := 0; step < modalStepBudget; step++ {
		snap, err := browser.Snapshot(ctx, page)
		if err != nil {
			return Result{Outcome: jobs.OutcomeFailed, Reason: "lost the page mid-wizard"}
		}

		if containsAny(snap.BodyText(), m.board.SuccessIndicators) {
			return Result{Outcome: successOutcome(usedHelp), Reason: "success indicator visible"}
		}

		visible, err := page.IsVisible(ctx, m.board.ModalSelector)
		if err != nil {
			visible = false
		}
		if !visible {
			if submitClicked {
				// Dismissal after an accepted submit is implicit success.
				return Result{Outcome: successOutcome(usedHelp), Reason: "modal dismissed after submit"}
			}
			return Result{Outcome: jobs.OutcomeFailed, Reason: "modal closed before submission"}
		}

		scope := m.board.ModalSelector
		controls := snap.Controls(scope)

		// Submission takes priority over further filling: some wizards show
		// "Submit" alongside still-optional fields.
		if submit := firstMatching(controls, submitWordRE); submit != nil {
			m.uncheckFollowCompany(ctx, page, snap, scope)
			if err := page.Click(ctx, submit.Path); err != nil {
				m.logger.Printf("submit click failed, re-observing: %v", err)
			} else {
				submitClicked = true
			}
			m.wait(ctx)
			continue
		}

		fillFields(ctx, page, snap, m.classifier, m.logger, fillOptions{scope: scope, resumePath: m.resumePath})
		resolveRadioGroups(ctx, page, snap, m.classifier, scope)

		// Re-scan: filling may have enabled a previously absent control.
		if fresh, err := browser.Snapshot(ctx, page); err == nil {
			snap = fresh
			controls = snap.Controls(scope)
		}
		if next := firstMatching(controls, nextWordRE); next != nil {
			if err := page.Click(ctx, next.Path); err != nil {
				m.logger.Printf("advance click failed, re-observing: %v", err)
			}
			m.wait(ctx)
			continue
		}

		errVisible, _ := page.IsVisible(ctx, m.board.ErrorRegionSelector)
		if errVisible || unresolvedRequired(snap.Fields(scope)) {
			// Bespoke validation rules cannot all be reverse-engineered;
			// block on a human finishing the step in the live window.
			if m.prompter == nil {
				return Result{Outcome: jobs.OutcomeFailed, Reason: "required field unresolved and no human channel"}
			}
			if _, err := m.prompter.Prompt("The application wizard needs manual input. Complete the current step in the browser window, then press Enter."); err != nil {
				return Result{Outcome: jobs.OutcomeFailed, Reason: "manual-help prompt failed"}
			}
			usedHelp = true
			continue
		}

		m.wait(ctx)
	}

	return Result{Outcome: jobs.OutcomeFailed, Reason: "wizard step budget exhausted"}
}

func (m *ModalDriver) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.settle):
	}
}

// uncheckFollowCompany opts out of the "follow this company" side effect
// before submitting; it is not part of the application. The board selector
// is the primary signal; the word match covers boards without one.
func (m *ModalDriver) uncheckFollowCompany(ctx context.Context, page browser.Page, snap *dom.PageSnapshot, scope string) {
	if sel := m.board.FollowCompanySelector; sel != "" {
		matched := false
		for _, n := range snap.Nodes(sel) {
			matched = true
			if err := page.SetChecked(ctx, n.Path, false); err != nil {
				m.logger.Printf("follow-company opt-out failed: %v", err)
			}
		}
		if matched {
			return
		}
	}
	for _, f := range snap.Fields(scope) {
		if f.Kind != dom.FieldCheckbox || !f.Checked {
			continue
		}
		if followWordRE.MatchString(f.Context()) || followWordRE.MatchString(f.Name) {
			if err := page.SetChecked(ctx, f.Path, false); err != nil {
				m.logger.Printf("follow-company opt-out failed: %v", err)
			}
		}
	}
}

func firstMatching(controls []dom.Control, re *regexp.Regexp) *dom.Control {
	for i := range controls {
		if re.MatchString(controls[i].Label) && !negativeControl(controls[i].Label) {
			return &controls[i]
		}
	}
	return nil
}

var negativeControlRE = regexp.MustCompile(`(?i)\b(cancel|close|discard|back|dismiss|exit)\b`)

func negativeControl(label string) bool {
	return negativeControlRE.MatchString(label) || strings.Contains(strings.ToLower(label), "sign in")
}
