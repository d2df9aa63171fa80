package flow

import (
	"context"
	"testing"
	"time"

	"github.com/mohammad-safakhou/jobagent/internal/boards"
	"github.com/mohammad-safakhou/jobagent/internal/browser"
	"github.com/mohammad-safakhou/jobagent/internal/intent"
	"github.com/mohammad-safakhou/jobagent/internal/jobs"
	"github.com/mohammad-safakhou/jobagent/internal/ranker"
)

const testBoardURL = "https://boards.example.com/search?q=backend"

func testBoard() boards.Descriptor {
	b := boards.Generic
	b.Domain = "boards.example.com"
	return b
}

func newTestExternalDriver(session *fakeSession) *ExternalDriver {
	cls := intent.New(testHints(), nil, nil)
	cls.SetJob(jobs.Posting{Title: "Backend Engineer", Company: "Acme"})
	rk := ranker.NewRanker(nil, nil)
	return NewExternalDriver(session, testBoard(), cls, rk, "", time.Millisecond, nil)
}

func TestExternalLoginWallShortCircuit(t *testing.T) {
	t.Parallel()
	origin := newFakePage(testBoardURL, "<html><body>board</body></html>")
	ext := newFakePage("https://ats.example.com/login?next=apply", `<html><body>
	  <h1>Sign in</h1>
	  <a href="/reset">Forgot password?</a>
	  <form><input type="email" name="email"><input type="password" name="password"></form>
	</body></html>`)
	s := &fakeSession{}
	s.pages = append(s.pages, origin, ext)
	s.active = origin

	res := newTestExternalDriver(s).Run(context.Background(), origin, testBoardURL, []browser.Page{origin})
	if res.Outcome != jobs.OutcomeSkipped {
		t.Fatalf("outcome = %s (%s), want skipped", res.Outcome, res.Reason)
	}
	if res.Reason != "login wall" {
		t.Fatalf("reason = %q, want login wall", res.Reason)
	}
	if len(ext.fills) != 0 {
		t.Fatalf("fields were filled on a login wall: %v", ext.fills)
	}
}

func TestExternalNoProgressTermination(t *testing.T) {
	t.Parallel()
	origin := newFakePage(testBoardURL, "<html><body>board</body></html>")
	ext := newFakePage("https://ats.example.com/apply/step1", `<html><body><form>
	  <button>Continue</button>
	  <button>Next step</button>
	  <button>Review application</button>
	</form></body></html>`)
	s := &fakeSession{}
	s.pages = append(s.pages, origin, ext)
	s.active = origin

	res := newTestExternalDriver(s).Run(context.Background(), origin, testBoardURL, []browser.Page{origin})
	if res.Outcome != jobs.OutcomeFailed {
		t.Fatalf("outcome = %s (%s), want failed", res.Outcome, res.Reason)
	}
	if res.Reason != "no progress after repeated clicks" {
		t.Fatalf("reason = %q", res.Reason)
	}
	if len(ext.clicks) != 3 {
		t.Fatalf("clicks = %d, want exactly 3 before terminating", len(ext.clicks))
	}
}

func TestExternalURLSuccess(t *testing.T) {
	t.Parallel()
	origin := newFakePage(testBoardURL, "<html><body>board</body></html>")
	ext := newFakePage("https://ats.example.com/apply", `<html><body><form>
	  <button type="submit">Submit application</button>
	</form></body></html>`)
	ext.onClick = func(path string) {
		ext.mu.Lock()
		ext.url = "https://ats.example.com/apply/confirmation"
		ext.html = "<html><body>Thank you for applying.</body></html>"
		ext.mu.Unlock()
	}
	s := &fakeSession{}
	s.pages = append(s.pages, origin, ext)
	s.active = origin

	res := newTestExternalDriver(s).Run(context.Background(), origin, testBoardURL, []browser.Page{origin})
	if res.Outcome != jobs.OutcomeApplied {
		t.Fatalf("outcome = %s (%s), want applied", res.Outcome, res.Reason)
	}
}

func TestExternalClosedPageTreatedAsSubmitted(t *testing.T) {
	t.Parallel()
	origin := newFakePage(testBoardURL, "<html><body>board</body></html>")
	ext := newFakePage("https://ats.example.com/apply", `<html><body><form>
	  <button>Continue</button>
	</form></body></html>`)
	ext.onClick = func(path string) {
		ext.mu.Lock()
		ext.closed = true
		ext.mu.Unlock()
	}
	s := &fakeSession{}
	s.pages = append(s.pages, origin, ext)
	s.active = origin

	res := newTestExternalDriver(s).Run(context.Background(), origin, testBoardURL, []browser.Page{origin})
	if res.Outcome != jobs.OutcomeApplied {
		t.Fatalf("outcome = %s (%s), want applied", res.Outcome, res.Reason)
	}
}

func TestExternalNoPageAppearedSkipped(t *testing.T) {
	t.Parallel()
	origin := newFakePage(testBoardURL, "<html><body>board</body></html>")
	s := &fakeSession{}
	s.pages = append(s.pages, origin)
	s.active = origin

	res := newTestExternalDriver(s).Run(context.Background(), origin, testBoardURL, []browser.Page{origin})
	if res.Outcome != jobs.OutcomeSkipped {
		t.Fatalf("outcome = %s (%s), want skipped", res.Outcome, res.Reason)
	}
	if res.Reason != "no external page appeared" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

// Tabs that were already open before the apply click belong to the user:
// cleanup closes only tabs the flow itself opened, and adoption never
// targets a pre-existing tab.
func TestExternalCleanupSparesPreexistingTabs(t *testing.T) {
	t.Parallel()
	origin := newFakePage(testBoardURL, "<html><body>board</body></html>")
	unrelated := newFakePage("https://mail.example.org/inbox", "<html><body>inbox</body></html>")
	ext := newFakePage("https://ats.example.com/login?next=apply", `<html><body>
	  <h1>Sign in</h1>
	  <a href="/reset">Forgot password?</a>
	  <form><input type="password" name="password"></form>
	</body></html>`)
	s := &fakeSession{}
	s.pages = append(s.pages, origin, unrelated, ext)
	s.active = origin

	res := newTestExternalDriver(s).Run(context.Background(), origin, testBoardURL, []browser.Page{origin, unrelated})
	if res.Outcome != jobs.OutcomeSkipped {
		t.Fatalf("outcome = %s (%s), want skipped", res.Outcome, res.Reason)
	}

	if unrelated.Closed(context.Background()) {
		t.Fatal("pre-existing tab was closed during cleanup")
	}
	if len(unrelated.fills) != 0 || len(unrelated.clicks) != 0 {
		t.Fatalf("pre-existing tab was driven: fills=%v clicks=%v", unrelated.fills, unrelated.clicks)
	}
	if !ext.Closed(context.Background()) {
		t.Fatal("flow-opened tab was not closed during cleanup")
	}
	if s.Active() != origin {
		t.Fatal("board page was not restored as active")
	}
}

func TestExternalCleanupRestoresBoard(t *testing.T) {
	t.Parallel()
	origin := newFakePage(testBoardURL, "<html><body>board</body></html>")
	ext := newFakePage("https://ats.example.com/login", `<html><body>
	  <p>Sign in</p><p>Forgot password</p>
	</body></html>`)
	s := &fakeSession{}
	s.pages = append(s.pages, origin, ext)
	s.active = origin

	_ = newTestExternalDriver(s).Run(context.Background(), origin, testBoardURL, []browser.Page{origin})

	if !ext.Closed(context.Background()) {
		t.Fatal("extra external tab was not closed during cleanup")
	}
	if s.Active() != origin {
		t.Fatal("board page was not restored as active")
	}
}
