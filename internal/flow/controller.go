package flow

import (
	"context"
	"errors"
	"log"
	"net/url"
	"time"

	"github.com/mohammad-safakhou/jobagent/internal/boards"
	"github.com/mohammad-safakhou/jobagent/internal/browser"
	"github.com/mohammad-safakhou/jobagent/internal/dom"
	"github.com/mohammad-safakhou/jobagent/internal/intent"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
	"github.com/mohammad-safakhou/jobagent/internal/planner"
)

// AttemptRecorder is the persistence surface the controller needs. The core
// drivers never touch it; only the orchestration layer records outcomes.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, posting jobs.Posting, outcome jobs.Outcome, reason string) error
	WasAttempted(ctx context.Context, url string) (bool, error)
	RecordRejection(ctx context.Context, url, reason string) error
}

// RelevanceDecider gates postings before any application attempt.
type RelevanceDecider interface {
	ShouldApply(ctx context.Context, posting jobs.Posting) planner.Decision
}

// Metrics is the telemetry surface the controller emits to.
type Metrics interface {
	RecordCard()
	RecordOutcome(outcome string)
}

// Controller iterates the job cards of a search-results view, dispatches
// each to the modal or external driver, and aggregates outcomes. One bad
// card never halts the batch.
type Controller struct {
	session    browser.Session
	board      boards.Descriptor
	boardURL   string
	classifier *intent.Classifier
	modal      *ModalDriver
	external   *ExternalDriver

	decider  RelevanceDecider
	recorder AttemptRecorder
	metrics  Metrics
	logger   *log.Logger

	maxApplications int
	settle          time.Duration
	modalWait       time.Duration
}

// ControllerParams wires a controller; decider, recorder, and metrics are
// optional.
type ControllerParams struct {
	Session    browser.Session
	Board      boards.Descriptor
	BoardURL   string
	Classifier *intent.Classifier
	Modal      *ModalDriver
	External   *ExternalDriver

	Decider  RelevanceDecider
	Recorder AttemptRecorder
	Metrics  Metrics
	Logger   *log.Logger

	MaxApplications int
	Settle          time.Duration
}

// NewController creates a controller.
func NewController(p ControllerParams) *Controller {
	if p.Logger == nil {
		p.Logger = log.Default()
	}
	if p.Settle <= 0 {
		p.Settle = 2 * time.Second
	}
	if p.MaxApplications <= 0 {
		p.MaxApplications = 1
	}
	return &Controller{
		session:         p.Session,
		board:           p.Board,
		boardURL:        p.BoardURL,
		classifier:      p.Classifier,
		modal:           p.Modal,
		external:        p.External,
		decider:         p.Decider,
		recorder:        p.Recorder,
		metrics:         p.Metrics,
		logger:          p.Logger,
		maxApplications: p.MaxApplications,
		settle:          p.Settle,
		modalWait:       5 * time.Second,
	}
}

// Run processes cards from the current search-results view until the
// success budget or the attempt bound is exhausted. Every processed card
// yields exactly one outcome; duplicates and already-attempted postings are
// skipped without an outcome.
func (c *Controller) Run(ctx context.Context) (jobs.Counters, error) {
	var counters jobs.Counters

	page := c.session.Active()
	if page == nil {
		return counters, errors.New("no active board page")
	}

	snap, err := browser.Snapshot(ctx, page)
	if err != nil {
		return counters, err
	}
	available := len(snap.Nodes(c.board.CardSelector))

	attempts := c.maxApplications * 4
	if attempts < c.maxApplications {
		attempts = c.maxApplications
	}
	if available < attempts {
		attempts = available
	}

	seen := map[string]bool{}
	for i := 0; i < attempts; i++ {
		if counters.Applied >= c.maxApplications {
			break
		}
		if ctx.Err() != nil {
			return counters, ctx.Err()
		}

		page = c.session.Active()
		if page == nil || page.Closed(ctx) {
			return counters, errors.New("board page lost")
		}
		c.ensureOnBoard(ctx, page)

		// Card lists mutate and re-render; resolve live elements each pass.
		snap, err := browser.Snapshot(ctx, page)
		if err != nil {
			c.logger.Printf("board snapshot failed: %v", err)
			continue
		}
		cards := snap.Nodes(c.board.CardSelector)
		if i >= len(cards) {
			break
		}

		res := c.processCard(ctx, page, cards[i], seen)
		if res == nil {
			continue
		}
		counters.Add(res.Outcome)
		c.logger.Printf("card %d: %s (%s)", i, res.Outcome, res.Reason)
		if c.metrics != nil {
			c.metrics.RecordOutcome(string(res.Outcome))
		}
	}
	return counters, nil
}

// processCard handles one card end to end. A nil result means the card
// produced no outcome (duplicate or already attempted). Unexpected panics
// downgrade to failed with best-effort modal cleanup.
func (c *Controller) processCard(ctx context.Context, page browser.Page, card dom.Node, seen map[string]bool) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("card processing panicked: %v", r)
			c.dismissModal(ctx, page)
			res = &Result{Outcome: jobs.OutcomeFailed, Reason: "unexpected error"}
		}
	}()

	if err := page.Click(ctx, card.Path); err != nil {
		if err := page.ClickScript(ctx, card.Path); err != nil {
			res = &Result{Outcome: jobs.OutcomeSkipped, Reason: "card no longer clickable"}
			return res
		}
	}
	c.wait(ctx)

	posting := c.capturePosting(ctx, page)
	key := posting.IdentityKey()
	if key != "" {
		if seen[key] {
			// Duplicate DOM entry, not a new job.
			return nil
		}
		seen[key] = true
	}
	if c.metrics != nil {
		c.metrics.RecordCard()
	}

	if c.recorder != nil && posting.URL != "" {
		if done, err := c.recorder.WasAttempted(ctx, posting.URL); err == nil && done {
			c.logger.Printf("already attempted %s, skipping", posting.URL)
			return nil
		}
	}

	c.classifier.SetJob(posting)

	if c.decider != nil {
		d := c.decider.ShouldApply(ctx, posting)
		if !d.Apply {
			if c.recorder != nil && posting.URL != "" {
				if err := c.recorder.RecordRejection(ctx, posting.URL, d.Reason); err != nil {
					c.logger.Printf("failed to record rejection: %v", err)
				}
			}
			res = &Result{Outcome: jobs.OutcomeSkipped, Reason: "not relevant: " + d.Reason}
			return res
		}
	}

	snap, err := browser.Snapshot(ctx, page)
	if err != nil {
		res = &Result{Outcome: jobs.OutcomeFailed, Reason: "lost the board page"}
		return res
	}
	easy := snap.FirstNode(c.board.EasyApplySelector)
	external := snap.FirstNode(c.board.ExternalApplySelector)

	if easy != nil {
		if c.openModal(ctx, page, easy.Path) {
			r := c.modal.Run(ctx, page)
			res = &r
			c.record(ctx, posting, r)
			return res
		}
		if external == nil {
			res = &Result{Outcome: jobs.OutcomeFailed, Reason: "embedded apply modal never opened"}
			c.record(ctx, posting, *res)
			return res
		}
		// Fall through to the external trigger on the same card.
	}

	if external != nil {
		// Tabs open before the trigger click belong to the user, not the
		// flow; the external driver must never adopt or close them.
		prior, err := c.session.Pages(ctx)
		if err != nil {
			prior = nil
		}
		if err := page.Click(ctx, external.Path); err != nil {
			if err := page.ClickScript(ctx, external.Path); err != nil {
				res = &Result{Outcome: jobs.OutcomeFailed, Reason: "external apply trigger unclickable"}
				c.record(ctx, posting, *res)
				return res
			}
		}
		r := c.external.Run(ctx, page, c.boardURL, prior)
		res = &r
		c.record(ctx, posting, r)
		return res
	}

	// No actionable control is not the automation's fault.
	res = &Result{Outcome: jobs.OutcomeSkipped, Reason: "no apply control on card"}
	return res
}

// openModal clicks the embedded-apply trigger with escalating strategies;
// overlays sometimes intercept the first attempt.
func (c *Controller) openModal(ctx context.Context, page browser.Page, path string) bool {
	strategies := []func() error{
		func() error { return page.Click(ctx, path) },
		func() error { return page.ClickScript(ctx, path) },
		func() error { return page.Click(ctx, path) },
	}
	for _, attempt := range strategies {
		if err := attempt(); err != nil {
			continue
		}
		if err := page.WaitVisible(ctx, c.board.ModalSelector, c.modalWait); err == nil {
			return true
		}
	}
	return false
}

// capturePosting reads the opened posting's context from the detail region.
func (c *Controller) capturePosting(ctx context.Context, page browser.Page) jobs.Posting {
	var posting jobs.Posting
	snap, err := browser.Snapshot(ctx, page)
	if err != nil {
		return posting
	}
	posting.Title = snap.FirstText(c.board.TitleSelector)
	posting.Company = snap.FirstText(c.board.CompanySelector)
	posting.Location = snap.FirstText(c.board.LocationSelector)
	posting.Description = snap.FirstText(c.board.DescriptionSelector)
	posting.URL = snap.URL
	return posting.Truncated()
}

// ensureOnBoard re-navigates the page when a prior card left it on an
// external site.
func (c *Controller) ensureOnBoard(ctx context.Context, page browser.Page) {
	u, err := page.URL(ctx)
	if err != nil {
		return
	}
	if c.onBoard(u) {
		return
	}
	if c.boardURL == "" {
		return
	}
	if err := page.Navigate(ctx, c.boardURL); err != nil {
		c.logger.Printf("failed to return to board: %v", err)
	}
	c.wait(ctx)
}

func (c *Controller) onBoard(u string) bool {
	if c.board.IsBoardURL(u) {
		return true
	}
	bu, err1 := url.Parse(c.boardURL)
	uu, err2 := url.Parse(u)
	return err1 == nil && err2 == nil && bu.Host != "" && bu.Host == uu.Host
}

// dismissModal best-effort closes a stray wizard left open by a failed card.
func (c *Controller) dismissModal(ctx context.Context, page browser.Page) {
	visible, err := page.IsVisible(ctx, c.board.ModalSelector)
	if err != nil || !visible {
		return
	}
	snap, err := browser.Snapshot(ctx, page)
	if err != nil {
		return
	}
	for _, ctrl := range snap.Controls(c.board.ModalSelector) {
		if negativeControlRE.MatchString(ctrl.Label) {
			if err := page.ClickScript(ctx, ctrl.Path); err == nil {
				return
			}
		}
	}
}

func (c *Controller) record(ctx context.Context, posting jobs.Posting, r Result) {
	if c.recorder == nil || posting.URL == "" {
		return
	}
	if err := c.recorder.RecordAttempt(ctx, posting, r.Outcome, r.Reason); err != nil {
		c.logger.Printf("failed to record attempt: %v", err)
	}
}

func (c *Controller) wait(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(c.settle):
	}
}
