package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"igpicker/pkg/selection"
)

// ASCIILogo is printed at the top of interactive commands
const ASCIILogo = `
  ╔═════════════════════════════════════════════╗
  ║  ╦╔═╗  ╔═╗╦╔═╗╦╔═╔═╗╦═╗                      ║
  ║  ║║ ╦  ╠═╝║║  ╠╩╗║╣ ╠╦╝                      ║
  ║  ╩╚═╝  ╩  ╩╚═╝╩ ╩╚═╝╩╚═  instagram selection  ║
  ╚═════════════════════════════════════════════╝
`

// Out is where the Print helpers write
var Out io.Writer = os.Stdout

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		return fmt.Sprintf(colorString, text)
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Out, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Out, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Out, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Out, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Out, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Out, Magenta(msg))
}

// PrintResultLine prints one username outcome
func PrintResultLine(r selection.Result) {
	switch r.Status {
	case selection.StatusSuccess:
		fmt.Fprintf(Out, "%s %s %s\n", Green("✓"), r.Username, Dim(fmt.Sprintf("%d posts", len(r.Posts))))
	case selection.StatusEmpty:
		fmt.Fprintf(Out, "%s %s %s\n", Yellow("!"), r.Username, Yellow(r.Message))
	default:
		fmt.Fprintf(Out, "%s %s %s\n", Red("✗"), r.Username, Red(r.Message))
	}
}

// PrintSummary prints the session counters on one line
func PrintSummary(s selection.Summary) {
	parts := []string{
		fmt.Sprintf("%d usernames", s.Usernames),
		Green(fmt.Sprintf("%d with posts", s.Success)),
	}
	if s.Empty > 0 {
		parts = append(parts, Yellow(fmt.Sprintf("%d empty", s.Empty)))
	}
	if s.Failed > 0 {
		parts = append(parts, Red(fmt.Sprintf("%d failed", s.Failed)))
	}
	parts = append(parts, fmt.Sprintf("%d/%d posts selected", s.Selected, s.Posts))
	fmt.Fprintln(Out, strings.Join(parts, Dim(" | ")))
}
