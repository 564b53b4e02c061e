// Package main provides the phbfit command-line tool.
package main

import (
	"errors"
	"os"
	"strings"

	"github.com/rbseq/phbfit/internal/printer"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCmd()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return printer.ExitOK
	}

	var ee *printer.ExitError
	if !errors.As(err, &ee) {
		// Cobra argument errors are not reported by the commands themselves.
		msg := err.Error()
		if strings.HasPrefix(msg, "unknown command") || strings.Contains(msg, "arg(s)") {
			err = printer.UsageError(msg, "", []string{"Run 'phbfit --help' for usage."})
		} else {
			err = printer.Error("Error", msg, nil)
		}
	}
	return printer.ExitCode(err)
}
