package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/jobagent/config"
	"github.com/mohammad-safakhou/jobagent/internal/boards"
	"github.com/mohammad-safakhou/jobagent/internal/dom"
	"github.com/mohammad-safakhou/jobagent/internal/intent"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
)

func testHints() config.ProfileConfig {
	return config.ProfileConfig{
		FullName:          "Alex Rivera",
		Email:             "alex@example.com",
		Phone:             "+1 555 0100",
		Location:          "Remote",
		NeedsSponsorship:  false,
		WillingToRelocate: true,
		YearsExperience:   "9",
	}
}

func newTestModalDriver(prompter *fakePrompter) *ModalDriver {
	cls := intent.New(testHints(), nil, nil)
	cls.SetJob(jobs.Posting{Title: "Backend Engineer", Company: "Acme"})
	d := NewModalDriver(boards.Generic, cls, nil, "", time.Millisecond, nil)
	if prompter != nil {
		d.prompter = prompter
	}
	return d
}

func TestModalSubmitPriority(t *testing.T) {
	t.Parallel()
	html := `<html><body><div role="dialog" class="modal">
	  <label for="nickname">Preferred nickname</label>
	  <input id="nickname" type="text">
	  <button>Submit application</button>
	</div></body></html>`

	page := newFakePage("https://boards.example.com/jobs/1", html)
	page.visible[boards.Generic.ModalSelector] = true
	page.onClick = func(path string) {
		page.mu.Lock()
		page.visible[boards.Generic.ModalSelector] = false
		page.mu.Unlock()
	}

	res := newTestModalDriver(nil).Run(context.Background(), page)
	if res.Outcome != jobs.OutcomeApplied {
		t.Fatalf("outcome = %s (%s), want applied", res.Outcome, res.Reason)
	}
	if len(page.fills) != 0 {
		t.Fatalf("optional field was filled before submit: %v", page.fills)
	}
	if len(page.clicks) != 1 {
		t.Fatalf("clicks = %d, want exactly the submit click", len(page.clicks))
	}
}

func TestModalBooleanGroupInvariant(t *testing.T) {
	t.Parallel()
	html := `<html><body><div role="dialog" class="modal">
	  <fieldset><legend>Do you require visa sponsorship?</legend>
	    <label><input type="radio" name="sponsorship" value="yes">Yes</label>
	    <label><input type="radio" name="sponsorship" value="no">No</label>
	  </fieldset>
	  <button>Next</button>
	</div></body></html>`
	success := `<html><body><div role="dialog" class="modal">Application submitted</div></body></html>`

	page := newFakePage("https://boards.example.com/jobs/2", html)
	page.visible[boards.Generic.ModalSelector] = true
	page.onClick = func(path string) { page.setHTML(success) }

	res := newTestModalDriver(nil).Run(context.Background(), page)
	if res.Outcome != jobs.OutcomeApplied {
		t.Fatalf("outcome = %s (%s), want applied", res.Outcome, res.Reason)
	}

	// Exactly one option selected, and it honors the configured hint.
	if len(page.checks) != 1 {
		t.Fatalf("checks = %v, want exactly one radio selected", page.checks)
	}
	groups := dom.ScanRadioGroups(dom.Doc{HTML: html}, boards.Generic.ModalSelector)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	var noPath string
	for _, o := range groups[0].Options {
		if strings.EqualFold(o.Label, "No") {
			noPath = o.Path
		}
	}
	if checked, ok := page.checks[noPath]; !ok || !checked {
		t.Fatalf("expected %q to be selected, got %v", noPath, page.checks)
	}
}

// The board's follow-company selector must locate the opt-out checkbox even
// when nothing in its label or name mentions following.
func TestModalFollowCompanySelectorOptOut(t *testing.T) {
	t.Parallel()
	html := `<html><body><div role="dialog" class="modal">
	  <label><input type="checkbox" name="updates_opt_in" data-role="subscribe" checked>Get updates from this company</label>
	  <button>Submit application</button>
	</div></body></html>`

	page := newFakePage("https://boards.example.com/jobs/6", html)
	page.visible[boards.Generic.ModalSelector] = true
	page.onClick = func(path string) {
		page.mu.Lock()
		page.visible[boards.Generic.ModalSelector] = false
		page.mu.Unlock()
	}

	board := boards.Generic
	board.FollowCompanySelector = `input[type="checkbox"][data-role="subscribe"]`
	d := newTestModalDriver(nil)
	d.board = board

	res := d.Run(context.Background(), page)
	if res.Outcome != jobs.OutcomeApplied {
		t.Fatalf("outcome = %s (%s), want applied", res.Outcome, res.Reason)
	}

	nodes := dom.ScanNodes(dom.Doc{HTML: html}, board.FollowCompanySelector)
	if len(nodes) != 1 {
		t.Fatalf("fixture selector matched %d nodes, want 1", len(nodes))
	}
	if checked, ok := page.checks[nodes[0].Path]; !ok || checked {
		t.Fatalf("opt-out checkbox was not unchecked before submit: %v", page.checks)
	}
}

func TestModalManualHelpEscalation(t *testing.T) {
	t.Parallel()
	html := `<html><body><div role="dialog" class="modal">
	  <label for="essay">Explain your interest in this role</label>
	  <input id="essay" type="text" required>
	</div></body></html>`
	success := `<html><body><div role="dialog" class="modal">Application submitted</div></body></html>`

	page := newFakePage("https://boards.example.com/jobs/3", html)
	page.visible[boards.Generic.ModalSelector] = true

	prompter := &fakePrompter{onPrompt: func() { page.setHTML(success) }}
	res := newTestModalDriver(prompter).Run(context.Background(), page)

	if res.Outcome != jobs.OutcomeManualHelp {
		t.Fatalf("outcome = %s (%s), want manual-help", res.Outcome, res.Reason)
	}
	if prompter.count() != 1 {
		t.Fatalf("prompts = %d, want 1", prompter.count())
	}
}

func TestModalStepBudgetExhaustion(t *testing.T) {
	t.Parallel()
	html := `<html><body><div role="dialog" class="modal">
	  <p>Loading the next question</p>
	</div></body></html>`

	page := newFakePage("https://boards.example.com/jobs/4", html)
	page.visible[boards.Generic.ModalSelector] = true

	res := newTestModalDriver(nil).Run(context.Background(), page)
	if res.Outcome != jobs.OutcomeFailed {
		t.Fatalf("outcome = %s (%s), want failed", res.Outcome, res.Reason)
	}
}

func TestModalNeverOpened(t *testing.T) {
	t.Parallel()
	page := newFakePage("https://boards.example.com/jobs/5", "<html><body></body></html>")

	res := newTestModalDriver(nil).Run(context.Background(), page)
	if res.Outcome != jobs.OutcomeFailed {
		t.Fatalf("outcome = %s (%s), want failed", res.Outcome, res.Reason)
	}
	if res.Reason != "application modal never opened" {
		t.Fatalf("reason = %q", res.Reason)
	}
}
