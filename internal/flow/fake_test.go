package flow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mohammad-safakhou/jobagent/internal/browser"
	"github.com/mohammad-safakhou/jobagent/internal/dom"
)

// fakePage is a scriptable in-memory Page. Tests mutate url/html/visible
// from an onClick hook to simulate page transitions.
type fakePage struct {
	mu      sync.Mutex
	url     string
	title   string
	html    string
	closed  bool
	visible map[string]bool

	onClick     func(path string)
	clicks      []string
	fills       map[string]string
	checks      map[string]bool
	selects     map[string]string
	files       map[string]string
	navigations []string
}

func newFakePage(url, html string) *fakePage {
	return &fakePage{
		url:     url,
		html:    html,
		visible: map[string]bool{},
		fills:   map[string]string{},
		checks:  map[string]bool{},
		selects: map[string]string{},
		files:   map[string]string{},
	}
}

func (f *fakePage) setHTML(html string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.html = html
}

func (f *fakePage) URL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *fakePage) Title(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title, nil
}

func (f *fakePage) HTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.html, nil
}

func (f *fakePage) FrameDocs(ctx context.Context) ([]dom.Doc, error) { return nil, nil }

func (f *fakePage) Click(ctx context.Context, path string) error {
	f.mu.Lock()
	f.clicks = append(f.clicks, path)
	hook := f.onClick
	f.mu.Unlock()
	if hook != nil {
		hook(path)
	}
	return nil
}

func (f *fakePage) ClickScript(ctx context.Context, path string) error {
	return f.Click(ctx, path)
}

func (f *fakePage) Fill(ctx context.Context, path, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fills[path] = value
	return nil
}

func (f *fakePage) SelectOption(ctx context.Context, path, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selects[path] = value
	return nil
}

func (f *fakePage) SetChecked(ctx context.Context, path string, checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks[path] = checked
	return nil
}

func (f *fakePage) SetFiles(ctx context.Context, path, file string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = file
	return nil
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigations = append(f.navigations, url)
	f.url = url
	return nil
}

func (f *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visible[selector] {
		return nil
	}
	return fmt.Errorf("selector %q not visible", selector)
}

func (f *fakePage) IsVisible(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.visible[selector], nil
}

func (f *fakePage) Closed(ctx context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakePage) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// fakeSession holds a fixed set of fake pages.
type fakeSession struct {
	mu     sync.Mutex
	pages  []browser.Page
	active browser.Page
}

func (s *fakeSession) Pages(ctx context.Context) ([]browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]browser.Page, len(s.pages))
	copy(out, s.pages)
	return out, nil
}

func (s *fakeSession) Active() browser.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *fakeSession) SetActive(p browser.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = p
}

func (s *fakeSession) NewPage(ctx context.Context, url string) (browser.Page, error) {
	p := newFakePage(url, "<html><body></body></html>")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *fakeSession) Close(ctx context.Context) error { return nil }

// fakePrompter records manual-help prompts and runs a hook per prompt.
type fakePrompter struct {
	mu       sync.Mutex
	calls    int
	onPrompt func()
}

func (p *fakePrompter) Prompt(message string) (string, error) {
	p.mu.Lock()
	p.calls++
	hook := p.onPrompt
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return "", nil
}

func (p *fakePrompter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}
