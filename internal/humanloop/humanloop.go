package humanloop

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter presents a message to a human and blocks until a line is
// entered. Used exclusively by the manual-help escalation: some wizard
// validation rules cannot be reverse-engineered generically, and blocking
// preserves correctness over availability.
type Prompter interface {
	Prompt(message string) (string, error)
}

// Console prompts on stdout and reads a line from the given reader.
// Blocking is deliberately unbounded.
type Console struct {
	out io.Writer
	in  *bufio.Reader
}

// NewConsole creates a console prompter on stdin/stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, in: bufio.NewReader(os.Stdin)}
}

// NewConsoleWith creates a console prompter on custom streams.
func NewConsoleWith(out io.Writer, in io.Reader) *Console {
	return &Console{out: out, in: bufio.NewReader(in)}
}

// Prompt writes the message and blocks until a line is entered.
func (c *Console) Prompt(message string) (string, error) {
	fmt.Fprintf(c.out, "\n%s\n> ", message)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
