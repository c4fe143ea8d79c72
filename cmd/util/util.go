package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/jorisdejosselin/install-sync/pkg/errors"
)

// Mocked for unit testing.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	exit             = os.Exit
)

// lineReader buffers stdin across prompts so consecutive questions don't
// drop input.
var lineReader *bufio.Reader

func readLine() (string, error) {
	if lineReader == nil {
		lineReader = bufio.NewReader(stdin)
	}
	return lineReader.ReadString('\n')
}

// HandlePanic recovers from a panic, printing the stack before exiting so
// users have something to attach to a bug report.
func HandlePanic() {
	if r := recover(); r != nil {
		fmt.Fprintf(os.Stderr, "install-sync crashed: %v\n\n%s\n"+
			"Please report this at "+
			"https://github.com/jorisdejosselin/install-sync/issues\n",
			r, debug.Stack())
		exit(1)
	}
}

// HandleFatalError prints the friendliest available form of err and exits.
func HandleFatalError(err error) {
	fmt.Fprintln(os.Stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// Confirm asks a yes/no question on the terminal. An empty answer takes the
// default.
func Confirm(question string, defaultYes bool) bool {
	suffix := "[Y/n]"
	if !defaultYes {
		suffix = "[y/N]"
	}
	fmt.Fprintf(stdout, "%s %s: ", question, suffix)

	line, err := readLine()
	if err != nil && line == "" {
		return defaultYes
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultYes
	}
}

// Prompt asks for a line of input, returning defaultValue on an empty answer.
func Prompt(question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Fprintf(stdout, "%s [%s]: ", question, defaultValue)
	} else {
		fmt.Fprintf(stdout, "%s: ", question)
	}

	line, err := readLine()
	if err != nil && line == "" {
		return defaultValue
	}

	answer := strings.TrimSpace(line)
	if answer == "" {
		return defaultValue
	}
	return answer
}
