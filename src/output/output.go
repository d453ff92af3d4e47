// Package output renders the pipeline's terminal output: sectioned
// stage frames, status icons, and the one-line failure cause.
package output

import (
	"fmt"
	"io"
	"os"
)

// Colors for terminal output.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
)

func isTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// UseColor returns true if colored output should be used.
// Respects NO_COLOR env, TERM=dumb, and terminal detection.
func UseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isTerminal() || IsCI()
}

// Failf prints the one-line failure cause every aborted run ends with.
func Failf(w io.Writer, color bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if color {
		fmt.Fprintf(w, "%s✗%s %s\n", colorRed, colorReset, msg)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", msg)
}

// Warnf prints a non-fatal problem; the run continues.
func Warnf(w io.Writer, color bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if color {
		fmt.Fprintf(w, "%s⊘%s %s\n", colorYellow, colorReset, msg)
		return
	}
	fmt.Fprintf(w, "⊘ %s\n", msg)
}

// Successf prints the final artifact location line.
func Successf(w io.Writer, color bool, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if color {
		fmt.Fprintf(w, "%s✓%s %s\n", colorGreen, colorReset, msg)
		return
	}
	fmt.Fprintf(w, "✓ %s\n", msg)
}
