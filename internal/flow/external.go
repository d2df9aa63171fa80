package flow

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/jobagent/internal/boards"
	"github.com/mohammad-safakhou/jobagent/internal/browser"
	"github.com/mohammad-safakhou/jobagent/internal/intent"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
	"github.com/mohammad-safakhou/jobagent/internal/ranker"
)

// externalStepBudget bounds the third-party form loop.
const externalStepBudget = 14

// noProgressLimit terminates the loop after this many consecutive actions
// that left the page fingerprint unchanged.
const noProgressLimit = 3

var loginURLTokens = []string{"/login", "/signin", "/sign-in", "/sign_in", "auth", "sso", "account/login"}

var signInCues = []string{"sign in", "log in", "login"}

var credentialCues = []string{"password", "forgot password", "reset your password"}

var antiBotCues = []string{
	"captcha", "verify you are human", "verify you're human", "security check",
	"unusual traffic", "are you a robot", "checking your browser", "challenge",
}

var successTextCues = []string{
	"thank you for applying", "thank you for your application",
	"application received", "application submitted", "application complete",
	"successfully applied", "we have received your application",
	"your application has been submitted",
}

var successURLTokens = []string{"thank-you", "thankyou", "thank_you", "confirmation", "submitted", "success"}

// ExternalDriver handles applications that redirect to a third-party site:
// new tab, popup, or same-tab navigation away from the job board. It fills
// whatever form the current page shows, asks the ranker for the next
// control, and detects success, login walls, anti-bot gates, and loops.
type ExternalDriver struct {
	session    browser.Session
	board      boards.Descriptor
	classifier *intent.Classifier
	ranker     *ranker.Ranker
	logger     *log.Logger

	resumePath string
	settle     time.Duration
}

// NewExternalDriver creates an external-application driver.
func NewExternalDriver(session browser.Session, board boards.Descriptor, cls *intent.Classifier, rk *ranker.Ranker, resumePath string, settle time.Duration, logger *log.Logger) *ExternalDriver {
	if logger == nil {
		logger = log.Default()
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	return &ExternalDriver{
		session:    session,
		board:      board,
		classifier: cls,
		ranker:     rk,
		logger:     logger,
		resumePath: resumePath,
		settle:     settle,
	}
}

// Run drives the external flow after the apply trigger was clicked on
// origin. boardURL is the last known search URL, used for cleanup. prior
// lists the tabs open before the trigger click; those are never adopted or
// closed, only tabs the application itself opened are. Every per-step error
// downgrades to "nothing to do this step"; a malformed third-party page
// must not crash the batch.
func (e *ExternalDriver) Run(ctx context.Context, origin browser.Page, boardURL string, prior []browser.Page) Result {
	preexisting := map[browser.Page]bool{origin: true}
	for _, p := range prior {
		preexisting[p] = true
	}
	defer e.cleanup(ctx, origin, boardURL, preexisting)

	page := e.resolveExternalPage(ctx, origin, preexisting)
	if page == nil {
		return Result{Outcome: jobs.OutcomeSkipped, Reason: "no external page appeared"}
	}

	clicked := 0
	noProgress := 0
	// Signatures already attempted without progress, keyed by the exact
	// page fingerprint they were attempted on.
	tried := map[string]map[string]bool{}

	for step := 0; step < externalStepBudget; step++ {
		if page.Closed(ctx) {
			// Many ATS flows close the tab on success.
			return Result{Outcome: jobs.OutcomeApplied, Reason: "external page closed, treating as submitted"}
		}
		if fresh := e.adoptNewest(ctx, page, preexisting); fresh != nil {
			page = fresh
		}

		snap, err := browser.Snapshot(ctx, page)
		if err != nil {
			e.logger.Printf("snapshot failed, retrying next step: %v", err)
			e.wait(ctx)
			continue
		}
		bodyText := snap.BodyText()

		if isLoginWall(snap.URL, bodyText) {
			return Result{Outcome: jobs.OutcomeSkipped, Reason: "login wall"}
		}
		if containsAny(bodyText, antiBotCues) {
			return Result{Outcome: jobs.OutcomeSkipped, Reason: "anti-bot gate"}
		}

		fillFields(ctx, page, snap, e.classifier, e.logger, fillOptions{resumePath: e.resumePath})

		if isSubmitted(snap.URL, bodyText) {
			return Result{Outcome: jobs.OutcomeApplied, Reason: "submission confirmed"}
		}

		fp := snap.Fingerprint()
		candidate := e.ranker.FindBestAction(ctx, snap, tried[fp])
		if candidate == nil {
			e.wait(ctx)
			if fresh, err := browser.Snapshot(ctx, page); err == nil && isSubmitted(fresh.URL, fresh.BodyText()) {
				return Result{Outcome: jobs.OutcomeApplied, Reason: "submission confirmed"}
			}
			if clicked > 0 {
				return Result{Outcome: jobs.OutcomeFailed, Reason: "no further action found"}
			}
			return Result{Outcome: jobs.OutcomeSkipped, Reason: "no actionable control found"}
		}

		if err := page.Click(ctx, candidate.Control.Path); err != nil {
			e.logger.Printf("click %q failed: %v", candidate.Control.Label, err)
		} else {
			clicked++
		}
		e.wait(ctx)

		if page.Closed(ctx) {
			return Result{Outcome: jobs.OutcomeApplied, Reason: "external page closed, treating as submitted"}
		}
		if fresh := e.adoptNewest(ctx, page, preexisting); fresh != nil {
			page = fresh
		}
		after, err := browser.Snapshot(ctx, page)
		if err != nil {
			continue
		}
		if after.Fingerprint() == fp {
			if tried[fp] == nil {
				tried[fp] = map[string]bool{}
			}
			tried[fp][candidate.Signature] = true
			noProgress++
			if noProgress >= noProgressLimit {
				if clicked > 0 {
					return Result{Outcome: jobs.OutcomeFailed, Reason: "no progress after repeated clicks"}
				}
				return Result{Outcome: jobs.OutcomeSkipped, Reason: "no progress and nothing clicked"}
			}
		} else {
			noProgress = 0
		}
	}

	if clicked > 0 {
		return Result{Outcome: jobs.OutcomeFailed, Reason: "external step budget exhausted"}
	}
	return Result{Outcome: jobs.OutcomeSkipped, Reason: "external step budget exhausted without action"}
}

// resolveExternalPage races three signals after the apply click: a new tab
// opening, the origin navigating off the board, or the settle delay passing
// with neither. The first to resolve wins; no signal means nothing to do.
func (e *ExternalDriver) resolveExternalPage(ctx context.Context, origin browser.Page, preexisting map[browser.Page]bool) browser.Page {
	deadline := time.Now().Add(e.settle * 3)
	for time.Now().Before(deadline) {
		if p := e.newestForeignPage(ctx, origin, preexisting); p != nil {
			e.session.SetActive(p)
			return p
		}
		if !origin.Closed(ctx) {
			if u, err := origin.URL(ctx); err == nil && u != "" && !e.isBoardURL(u) {
				return origin
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(e.settle / 4):
		}
	}
	return nil
}

// adoptNewest re-targets the newest non-board page when the flow has hopped
// tabs mid-application. Returns nil when current is still the newest.
func (e *ExternalDriver) adoptNewest(ctx context.Context, current browser.Page, preexisting map[browser.Page]bool) browser.Page {
	newest := e.newestForeignPage(ctx, current, preexisting)
	if newest == nil {
		return nil
	}
	e.session.SetActive(newest)
	return newest
}

// newestForeignPage returns the most recently opened page that is not the
// given page, not a board page, and not open before the flow started, or
// nil.
func (e *ExternalDriver) newestForeignPage(ctx context.Context, except browser.Page, preexisting map[browser.Page]bool) browser.Page {
	pages, err := e.session.Pages(ctx)
	if err != nil {
		return nil
	}
	for i := len(pages) - 1; i >= 0; i-- {
		p := pages[i]
		if p == except || preexisting[p] || p.Closed(ctx) {
			continue
		}
		u, err := p.URL(ctx)
		if err != nil || u == "" || u == "about:blank" {
			continue
		}
		if e.isBoardURL(u) {
			continue
		}
		return p
	}
	return nil
}

func (e *ExternalDriver) isBoardURL(u string) bool {
	return e.board.IsBoardURL(u)
}

// cleanup always runs: foreign tabs the flow opened are closed, tabs that
// were already open before the flow are left alone, and the board page is
// restored so the controller can continue with the next card.
func (e *ExternalDriver) cleanup(ctx context.Context, origin browser.Page, boardURL string, preexisting map[browser.Page]bool) {
	pages, err := e.session.Pages(ctx)
	if err == nil {
		for _, p := range pages {
			if preexisting[p] || p.Closed(ctx) {
				continue
			}
			if u, err := p.URL(ctx); err == nil && !e.isBoardURL(u) {
				if err := p.Close(ctx); err != nil {
					e.logger.Printf("failed to close extra tab: %v", err)
				}
			}
		}
	}

	if !origin.Closed(ctx) {
		if u, err := origin.URL(ctx); err == nil && !e.isBoardURL(u) && boardURL != "" {
			if err := origin.Navigate(ctx, boardURL); err != nil {
				e.logger.Printf("failed to return to board: %v", err)
			}
		}
		e.session.SetActive(origin)
		return
	}

	// The original tab is gone: reuse any surviving board tab or open a
	// fresh one at the last known search URL.
	if pages, err := e.session.Pages(ctx); err == nil {
		for _, p := range pages {
			if p.Closed(ctx) {
				continue
			}
			if u, err := p.URL(ctx); err == nil && e.isBoardURL(u) {
				e.session.SetActive(p)
				return
			}
		}
	}
	if boardURL != "" {
		if p, err := e.session.NewPage(ctx, boardURL); err == nil {
			e.session.SetActive(p)
		}
	}
}

func (e *ExternalDriver) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(e.settle):
	}
}

// isLoginWall requires both a login-looking URL and credential cues in the
// body text; either signal alone is too noisy.
func isLoginWall(url, bodyText string) bool {
	lower := strings.ToLower(url)
	urlHit := false
	for _, tok := range loginURLTokens {
		if strings.Contains(lower, tok) {
			urlHit = true
			break
		}
	}
	return urlHit && containsAny(bodyText, signInCues) && containsAny(bodyText, credentialCues)
}

func isSubmitted(url, bodyText string) bool {
	if containsAny(bodyText, successTextCues) {
		return true
	}
	lower := strings.ToLower(url)
	for _, tok := range successURLTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
