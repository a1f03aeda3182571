package capability

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"humanlang/internal/value"
)

// Summarizer is implemented by opaque values that print a one-line summary
// instead of their plain String form.
type Summarizer interface {
	Summary() string
}

// Console serves console.print and console.ask. Writes are serialized so
// detached tasks never interleave partial lines.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	in  *bufio.Reader
}

// NewConsole creates a console over out and in. in may be nil when the
// program never asks for input.
func NewConsole(out io.Writer, in io.Reader) *Console {
	c := &Console{out: out}
	if in != nil {
		c.in = bufio.NewReader(in)
	}
	return c
}

// Register installs the console capabilities into r.
func (c *Console) Register(r *Registry) {
	r.Handle(ConsolePrint, c.Print)
	r.Handle(ConsoleAsk, c.Ask)
}

// Display returns the text "show me" writes for v.
func Display(v value.Value) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(Summarizer); ok {
		return s.Summary()
	}
	return v.String()
}

// Print writes the display form of its argument and a newline.
func (c *Console) Print(ctx context.Context, args []value.Value) (value.Value, error) {
	v, err := Arg(args, 0, "value to show")
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = fmt.Fprintln(c.out, Display(v))
	return value.Null, err
}

// Ask writes the prompt and reads one line of input.
func (c *Console) Ask(ctx context.Context, args []value.Value) (value.Value, error) {
	prompt, err := StringArg(args, 0, "prompt")
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.in == nil {
		return nil, fmt.Errorf("no console input available")
	}
	if _, err := fmt.Fprint(c.out, prompt+" "); err != nil {
		return nil, err
	}
	line, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if err == io.EOF && line == "" {
		return nil, fmt.Errorf("end of input while waiting for an answer")
	}
	return value.StringVal(strings.TrimRight(line, "\r\n")), nil
}
