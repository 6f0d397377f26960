package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// statusf prints a progress/status message to stderr unless --quiet was
// passed on the command line.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Statusf is the method form of statusf, for call sites that already have
// a *CLIContext in hand.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(format, args...)
}

// formatSize renders a byte count the way table output displays file and
// folder sizes, delegating to go-humanize's SI-decimal convention ("1.5
// kB", "5.2 MB") rather than a hand-rolled KB/MB/GB ladder.
func formatSize(bytes int64) string {
	if bytes < 0 {
		return "-"
	}

	return humanize.Bytes(uint64(bytes))
}

// formatTime returns a compact timestamp for display: same-year entries
// show month/day/time, older entries show month/day/year.
func formatTime(t time.Time) string {
	now := time.Now()

	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}

	return t.Format("Jan _2  2006")
}

// printTable writes aligned columns to w. headers and each row must have
// the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow(w, headers, widths)

	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}

// isTerminal reports whether w is an interactive terminal, including the
// Cygwin/MSYS pseudo-terminal case go-isatty special-cases on Windows.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// resolveFormat honors an explicit --format/config value; otherwise it
// defaults to "table" when out is a terminal and "json" when piped, so
// scripted invocations get structured output without passing --format
// every time.
func resolveFormat(explicit string, out io.Writer) string {
	if explicit != "" {
		return explicit
	}

	if isTerminal(out) {
		return "table"
	}

	return "json"
}
