package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Arbor ASCII banner to w, coloured for the
// terminal's profile.
func PrintBanner(w io.Writer) {
	p := termenv.NewOutput(w).ColorProfile()
	lines := []struct{ text, color string }{
		{"   __ _ _ __| |__   ___  _ __ ", "#34d399"},
		{"  / _` | '__| '_ \\ / _ \\| '__|", "#2dd4bf"},
		{" | (_| | |  | |_) | (_) | |   ", "#38bdf8"},
		{"  \\__,_|_|  |_.__/ \\___/|_|   ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
