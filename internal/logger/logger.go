package logger

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
)

var colorized = isatty.IsTerminal(os.Stdout.Fd())

func paint(color, s string) string {
	if !colorized {
		return s
	}
	return color + s + reset
}

func line(color, symbol, tag, msg string) {
	fmt.Fprintf(os.Stdout, "%s %s %s\n", paint(color, symbol), paint(bold, "["+tag+"]"), msg)
}

// Info logs a neutral progress message under a short tag.
func Info(tag, msg string) { line(blue, "•", tag, msg) }

// Success logs a completed step.
func Success(tag, msg string) { line(green, "✓", tag, msg) }

// Warn logs a recoverable problem.
func Warn(tag, msg string) { line(yellow, "!", tag, msg) }

// Error logs a failure. It does not exit; callers decide that.
func Error(tag, msg string) { line(red, "✗", tag, msg) }

// Banner prints the startup header with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	fmt.Fprintln(os.Stdout, paint(cyan+bold, "whr-rank"), paint(dim, version))
}

// Section prints a titled divider for grouped stats output.
func Section(title string) {
	fmt.Fprintf(os.Stdout, "%s %s\n", paint(cyan, "──"), paint(bold, title))
}

// Stats prints one aligned key/value line under the current Section.
func Stats(key string, value interface{}) {
	fmt.Fprintf(os.Stdout, "   %-18s %v\n", key, value)
}

// Server announces the listen address.
func Server(addr string) {
	fmt.Fprintf(os.Stdout, "%s %s http://%s\n", paint(green, "▲"), paint(bold, "[Server]"), addr)
}
