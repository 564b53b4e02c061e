// Package printer writes colored status messages for the command line.
// Everything goes to stderr so that stdout carries only table output.
package printer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
)

// Exit codes returned by the CLI.
const (
	ExitOK      = 0
	ExitFailure = 1 // input, network or export failure
	ExitUsage   = 2 // bad flags or configuration
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Stderr is where messages are written.
var Stderr io.Writer = os.Stderr

// Success prints a success message in green with a checkmark prefix.
func Success(format string, a ...any) {
	green.Fprintf(Stderr, "✓ %s", fmt.Sprintf(format, a...))
}

// Warning prints a warning message in yellow.
func Warning(format string, a ...any) {
	yellow.Fprintf(Stderr, "! %s", fmt.Sprintf(format, a...))
}

// Step prints a step message (used in multi-step operations).
func Step(format string, a ...any) {
	cyan.Fprintf(Stderr, "→ %s", fmt.Sprintf(format, a...))
}

// Info prints a plain message.
func Info(format string, a ...any) {
	fmt.Fprintf(Stderr, format, a...)
}

// ExitError is a failure already reported to the user. Its message is the
// title only; Code is the process exit status.
type ExitError struct {
	Title string
	Code  int
}

func (e *ExitError) Error() string {
	return e.Title
}

// Error prints a formatted error with title, explanation and suggestions
// and returns an ExitError with ExitFailure.
func Error(title, explanation string, suggestions []string) error {
	report(title, explanation, nil, suggestions)
	return &ExitError{Title: title, Code: ExitFailure}
}

// ErrorWithContext is like Error with key/value details printed between
// the explanation and the suggestions.
func ErrorWithContext(title, explanation string, context map[string]string, suggestions []string) error {
	report(title, explanation, context, suggestions)
	return &ExitError{Title: title, Code: ExitFailure}
}

// UsageError is like Error but exits with ExitUsage.
func UsageError(title, explanation string, suggestions []string) error {
	report(title, explanation, nil, suggestions)
	return &ExitError{Title: title, Code: ExitUsage}
}

// ExitCode maps an error to a process exit status. Errors not created by
// this package are failures.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

func report(title, explanation string, context map[string]string, suggestions []string) {
	red.Fprintf(Stderr, "%s\n", title)

	if explanation != "" {
		fmt.Fprintf(Stderr, "\n%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(Stderr, "\n")
		for _, k := range keys {
			fmt.Fprintf(Stderr, "  %s: %s\n", k, context[k])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintf(Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(Stderr, "Either:\n")
			for i, s := range suggestions {
				fmt.Fprintf(Stderr, "  %d. %s\n", i+1, s)
			}
		}
	}
}
