package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/mohammad-safakhou/jobagent/config"
	"github.com/mohammad-safakhou/jobagent/internal/dom"
)

// ErrElementNotFound is returned when a path no longer resolves to an
// element; callers treat it as "this action is unavailable right now".
var ErrElementNotFound = errors.New("element not found")

// ChromeSession drives a real Chrome instance through chromedp. The
// user-data-dir points at a long-lived profile so login state survives
// restarts.
type ChromeSession struct {
	browserCtx context.Context
	cancels    []context.CancelFunc

	mu     sync.Mutex
	pages  map[target.ID]*chromePage
	active Page

	actionTimeout time.Duration
	navTimeout    time.Duration
}

// NewChromeSession launches (or attaches to) a browser with the configured
// profile directory and returns a session ready for navigation.
func NewChromeSession(ctx context.Context, cfg config.BrowserConfig) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserDataDir(cfg.UserDataDir),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser process eagerly so failures surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s := &ChromeSession{
		browserCtx:    browserCtx,
		cancels:       []context.CancelFunc{cancelBrowser, cancelAlloc},
		pages:         make(map[target.ID]*chromePage),
		actionTimeout: cfg.ActionTimeout,
		navTimeout:    cfg.NavigationTimeout,
	}
	return s, nil
}

// Pages lists currently open tabs, attaching to any the session has not
// seen before.
func (s *ChromeSession) Pages(ctx context.Context) ([]Page, error) {
	infos, err := chromedp.Targets(s.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	alive := make(map[target.ID]bool, len(infos))
	var out []Page
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		alive[info.TargetID] = true
		p, ok := s.pages[info.TargetID]
		if !ok {
			tabCtx, cancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(info.TargetID))
			p = &chromePage{session: s, ctx: tabCtx, cancel: cancel, id: info.TargetID}
			s.pages[info.TargetID] = p
		}
		out = append(out, p)
	}
	for id, p := range s.pages {
		if !alive[id] {
			p.markClosed()
			delete(s.pages, id)
		}
	}
	return out, nil
}

// Active returns the page the flows currently own.
func (s *ChromeSession) Active() Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive reassigns page ownership after a tab-adoption event.
func (s *ChromeSession) SetActive(p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = p
}

// NewPage opens a fresh tab at url.
func (s *ChromeSession) NewPage(ctx context.Context, url string) (Page, error) {
	tabCtx, cancel := chromedp.NewContext(s.browserCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	p := &chromePage{session: s, ctx: tabCtx, cancel: cancel, id: chromedp.FromContext(tabCtx).Target.TargetID}
	s.mu.Lock()
	s.pages[p.id] = p
	s.mu.Unlock()
	return p, nil
}

// Close shuts the browser down.
func (s *ChromeSession) Close(ctx context.Context) error {
	for _, cancel := range s.cancels {
		cancel()
	}
	return nil
}

// chromePage is one attached tab.
type chromePage struct {
	session *ChromeSession
	ctx     context.Context
	cancel  context.CancelFunc
	id      target.ID

	mu     sync.Mutex
	closed bool
}

func (p *chromePage) markClosed() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
}

func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = p.session.actionTimeout
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var u string
	if err := p.run(ctx, 0, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("failed to read location: %w", err)
	}
	return u, nil
}

func (p *chromePage) Title(ctx context.Context) (string, error) {
	var t string
	if err := p.run(ctx, 0, chromedp.Title(&t)); err != nil {
		return "", fmt.Errorf("failed to read title: %w", err)
	}
	return t, nil
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var h string
	if err := p.run(ctx, 0, chromedp.OuterHTML("html", &h, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read html: %w", err)
	}
	return h, nil
}

type frameDoc struct {
	Path string `json:"path"`
	HTML string `json:"html"`
}

func (p *chromePage) FrameDocs(ctx context.Context) ([]dom.Doc, error) {
	var raw []frameDoc
	if err := p.run(ctx, 0, chromedp.Evaluate(frameDocsJS, &raw)); err != nil {
		return nil, fmt.Errorf("failed to enumerate frames: %w", err)
	}
	docs := make([]dom.Doc, 0, len(raw))
	for _, f := range raw {
		docs = append(docs, dom.Doc{FramePath: f.Path, HTML: f.HTML})
	}
	return docs, nil
}

func (p *chromePage) evalBool(ctx context.Context, script string) error {
	var ok bool
	if err := p.run(ctx, 0, chromedp.Evaluate(script, &ok)); err != nil {
		return err
	}
	if !ok {
		return ErrElementNotFound
	}
	return nil
}

func (p *chromePage) Click(ctx context.Context, path string) error {
	// Native input events for top-document elements; script clicks are the
	// only way to reach into same-origin frames.
	if !isFramePath(path) {
		if err := p.run(ctx, 0, chromedp.Click(path, chromedp.ByQuery)); err == nil {
			return nil
		}
	}
	return p.ClickScript(ctx, path)
}

func (p *chromePage) ClickScript(ctx context.Context, path string) error {
	return p.evalBool(ctx, fmt.Sprintf(clickJS, path))
}

func (p *chromePage) Fill(ctx context.Context, path, value string) error {
	return p.evalBool(ctx, fmt.Sprintf(fillJS, path, value))
}

func (p *chromePage) SelectOption(ctx context.Context, path, value string) error {
	return p.evalBool(ctx, fmt.Sprintf(selectOptionJS, path, value))
}

func (p *chromePage) SetChecked(ctx context.Context, path string, checked bool) error {
	return p.evalBool(ctx, fmt.Sprintf(setCheckedJS, path, checked))
}

func (p *chromePage) SetFiles(ctx context.Context, path, file string) error {
	if isFramePath(path) {
		return fmt.Errorf("file input inside frame: %w", ErrElementNotFound)
	}
	return p.run(ctx, 0, chromedp.SetUploadFiles(path, []string{file}, chromedp.ByQuery))
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	timeout := timeoutOrDefault(p.session.navTimeout, 30*time.Second)
	if err := p.run(ctx, timeout, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// timeoutOrDefault returns d when positive, otherwise fallback.
func timeoutOrDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}

func (p *chromePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return p.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) IsVisible(ctx context.Context, selector string) (bool, error) {
	var ok bool
	if err := p.run(ctx, 0, chromedp.Evaluate(fmt.Sprintf(isVisibleJS, selector), &ok)); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *chromePage) Closed(ctx context.Context) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()

	infos, err := chromedp.Targets(p.session.browserCtx)
	if err != nil {
		return true
	}
	for _, info := range infos {
		if info.TargetID == p.id {
			return false
		}
	}
	p.markClosed()
	return true
}

func (p *chromePage) Close(ctx context.Context) error {
	err := p.run(ctx, 0, chromedp.ActionFunc(func(actionCtx context.Context) error {
		return cdppage.Close().Do(actionCtx)
	}))
	p.markClosed()
	return err
}

func isFramePath(path string) bool {
	for i := 0; i+5 <= len(path); i++ {
		if path[i:i+5] == " >>> " {
			return true
		}
	}
	return false
}
