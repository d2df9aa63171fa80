package humanloop

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsolePromptReturnsTrimmedLine(t *testing.T) {
	t.Parallel()
	var out bytes.Buffer
	c := NewConsoleWith(&out, strings.NewReader("  done \n"))

	got, err := c.Prompt("Complete the step and press Enter.")
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if got != "done" {
		t.Fatalf("got %q, want %q", got, "done")
	}
	if !strings.Contains(out.String(), "Complete the step") {
		t.Fatalf("prompt message not written: %q", out.String())
	}
}

func TestConsolePromptWithoutNewlineAtEOF(t *testing.T) {
	t.Parallel()
	c := NewConsoleWith(&bytes.Buffer{}, strings.NewReader("ok"))
	got, err := c.Prompt("msg")
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if got != "ok" {
		t.Fatalf("got %q", got)
	}
}
