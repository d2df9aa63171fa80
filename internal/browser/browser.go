package browser

import (
	"context"
	"time"

	"github.com/mohammad-safakhou/jobagent/internal/dom"
)

// Page is one browser tab. Flow drivers program against this interface so
// tests can inject fake pages; the chromedp implementation is the only
// production one. Element paths are the css paths synthesized by the dom
// package, with same-origin frame hops joined by " >>> ".
type Page interface {
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	FrameDocs(ctx context.Context) ([]dom.Doc, error)

	Click(ctx context.Context, path string) error
	ClickScript(ctx context.Context, path string) error
	Fill(ctx context.Context, path, value string) error
	SelectOption(ctx context.Context, path, value string) error
	SetChecked(ctx context.Context, path string, checked bool) error
	SetFiles(ctx context.Context, path, file string) error

	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	IsVisible(ctx context.Context, selector string) (bool, error)

	Closed(ctx context.Context) bool
	Close(ctx context.Context) error
}

// Session owns the set of open pages for one automation run. The flow layer
// is the sole mutator; "which page is current" is tracked here and
// reassigned after every tab-adoption event.
type Session interface {
	Pages(ctx context.Context) ([]Page, error)
	Active() Page
	SetActive(p Page)
	NewPage(ctx context.Context, url string) (Page, error)
	Close(ctx context.Context) error
}

// Snapshot captures a page and its same-origin frames into a scannable
// snapshot. Frame enumeration failures degrade to a top-document-only
// snapshot rather than an error.
func Snapshot(ctx context.Context, p Page) (*dom.PageSnapshot, error) {
	url, err := p.URL(ctx)
	if err != nil {
		return nil, err
	}
	title, err := p.Title(ctx)
	if err != nil {
		title = ""
	}
	html, err := p.HTML(ctx)
	if err != nil {
		return nil, err
	}
	docs := []dom.Doc{{HTML: html}}
	if frames, err := p.FrameDocs(ctx); err == nil {
		docs = append(docs, frames...)
	}
	return &dom.PageSnapshot{URL: url, Title: title, Docs: docs}, nil
}
