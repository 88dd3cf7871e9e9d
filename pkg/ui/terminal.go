package ui

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
)

// ASCIILogo is printed at the top of interactive runs
const ASCIILogo = `
   ┌─┐┬─┐┌┬┐  ┌─┐┌─┐┬  ┬  ┌─┐┌─┐┌┬┐┌─┐┬─┐
   ├─┤├┬┘ │   │  │ ││  │  ├┤ │   │ │ │├┬┘
   ┴ ┴┴└─ ┴   └─┘└─┘┴─┘┴─┘└─┘└─┘ ┴ └─┘┴└─
   tumblr -> mega media collector
`

var quiet atomic.Bool

var noColor = os.Getenv("NO_COLOR") != ""

var out io.Writer = os.Stdout

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
		if noColor {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetQuiet suppresses every Print helper and the progress bar
func SetQuiet(q bool) {
	quiet.Store(q)
}

// IsQuietMode reports whether output is suppressed
func IsQuietMode() bool {
	return quiet.Load()
}

// SetNoColor disables ANSI colors. NO_COLOR in the environment does the same.
func SetNoColor(disabled bool) {
	noColor = disabled || os.Getenv("NO_COLOR") != ""
}

// SetOutput redirects the Print helpers, returning the previous writer
func SetOutput(w io.Writer) io.Writer {
	prev := out
	out = w
	return prev
}

func printf(format string, args ...interface{}) {
	if IsQuietMode() {
		return
	}
	fmt.Fprintf(out, format, args...)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	printf("%s", Cyan(ASCIILogo))
}

// PrintError prints an error message in red, with the error when given
func PrintError(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	printf("%s %s\n", Red("✗"), Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printf("%s %s\n", Green("✓"), msg)
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string) {
	printf("%s %s\n", Yellow("⚠"), Yellow(msg))
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printf("%s\n", Magenta(msg))
}
