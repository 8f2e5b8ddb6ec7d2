package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Executor runs one console line and returns its reply body.
type Executor func(line string) (string, error)

// REPL represents the Read-Eval-Print Loop.
type REPL struct {
	input     io.Reader
	output    io.Writer
	prompt    string
	exec      Executor
	completer *Completer
	history   *History
}

// New creates a shell that sends lines to exec.
func New(in io.Reader, out io.Writer, exec Executor, history *History) *REPL {
	if history == nil {
		history = NewHistory("")
	}
	return &REPL{
		input:     in,
		output:    out,
		prompt:    "sabertooth> ",
		exec:      exec,
		completer: NewCompleter(),
		history:   history,
	}
}

// ErrServerGone is returned when the server closes the session, as it does
// after shutdown.
var ErrServerGone = errors.New("server closed the console session")

// Run reads lines until EOF, exit or quit.
func (r *REPL) Run() error {
	reader := bufio.NewReader(r.input)
	for {
		fmt.Fprint(r.output, r.prompt)

		line, err := reader.ReadString('\n')
		if err == io.EOF && line == "" {
			fmt.Fprintln(r.output)
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		r.history.Add(line)

		switch {
		case line == "exit" || line == "quit":
			return nil
		case strings.HasSuffix(line, "?"):
			for _, s := range r.completer.Complete(strings.TrimSuffix(line, "?")) {
				fmt.Fprintln(r.output, s)
			}
			continue
		}

		body, err := r.exec(line)
		fmt.Fprint(r.output, body)
		if err != nil {
			fmt.Fprintf(r.output, "error: %v\n", err)
			if errors.Is(err, ErrServerGone) {
				return err
			}
		}
	}
}
