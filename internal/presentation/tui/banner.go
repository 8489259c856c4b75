package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`                     _            _             `, "#818cf8"},
	{`  ___ ___  _ __   __| |_   _  ___| |_ ___  _ __ `, "#a78bfa"},
	{` / __/ _ \| '_ \ / _' | | | |/ __| __/ _ \| '__|`, "#c084fc"},
	{`| (_| (_) | | | | (_| | |_| | (__| || (_) | |   `, "#e879f9"},
	{` \___\___/|_| |_|\__,_|\__,_|\___|\__\___/|_|   `, "#f472b6"},
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// PrintBanner writes the colored banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
