package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrInterrupted is returned by a Prompter when the operator interrupts or
// input ends. Sessions treat it as a clean stop.
var ErrInterrupted = errors.New("session: interrupted by operator")

// Prompter is the operator's terminal.
type Prompter interface {
	// Choose shows options numbered from 1 and returns the zero-based
	// index of the operator's choice.
	Choose(ctx context.Context, title string, options []string) (int, error)
	// Confirm asks a yes/no question.
	Confirm(ctx context.Context, question string) (bool, error)
	Printf(format string, args ...any)
}

// Terminal is a line-based Prompter. Reads happen on a background goroutine
// so a cancelled ctx unblocks a pending question.
type Terminal struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
}

// NewTerminal returns a Prompter reading answers from in and writing
// menus to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, lines: make(chan string)}
}

func (t *Terminal) Printf(format string, args ...any) {
	fmt.Fprintf(t.out, format, args...)
}

func (t *Terminal) Choose(ctx context.Context, title string, options []string) (int, error) {
	rule := strings.Repeat("=", 60)
	t.Printf("\n%s\n%s\n%s\n", rule, title, rule)
	for i, o := range options {
		t.Printf("%d. %s\n", i+1, o)
	}

	valid := make([]string, len(options))
	for i := range options {
		valid[i] = fmt.Sprint(i + 1)
	}
	hint := strings.Join(valid, " or ")

	for {
		t.Printf("\nEnter your choice (%s): ", hint)
		line, err := t.readLine(ctx)
		if err != nil {
			t.Printf("\n")
			return 0, err
		}
		for i, v := range valid {
			if strings.TrimSpace(line) == v {
				return i, nil
			}
		}
		t.Printf("Invalid choice! Please enter %s.\n", hint)
	}
}

// Confirm accepts "y" and "yes" in any case; anything else is no.
func (t *Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	t.Printf("\n%s (y/n): ", question)
	line, err := t.readLine(ctx)
	if err != nil {
		t.Printf("\n")
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.once.Do(func() { go t.pump() })
	select {
	case <-ctx.Done():
		return "", ErrInterrupted
	case line, ok := <-t.lines:
		if !ok {
			return "", ErrInterrupted
		}
		return line, nil
	}
}

// pump feeds lines from in until EOF. It outlives a cancelled question; the
// next readLine picks up where it left off.
func (t *Terminal) pump() {
	defer close(t.lines)
	sc := bufio.NewScanner(t.in)
	for sc.Scan() {
		t.lines <- sc.Text()
	}
}
