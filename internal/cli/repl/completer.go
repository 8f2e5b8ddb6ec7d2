package repl

import (
	"sort"
	"strings"
)

// Completer suggests console commands for a prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer for the console command set.
func NewCompleter() *Completer {
	cmds := []string{
		"status", "mandates", "routes", "help",
		"diagnostics ", "rebuild ",
		"shutdown", "exit", "quit",
	}
	sort.Strings(cmds)
	return &Completer{commands: cmds}
}

// Complete returns completion suggestions for the given prefix.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.TrimLeft(prefix, " ")
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, strings.TrimSpace(cmd))
		}
	}
	return suggestions
}
