package tui

import (
	"fmt"
	"io"
)

// PrintBanner writes the hfsm ASCII art banner.
func (r *Renderer) PrintBanner(w io.Writer) {
	lines := []struct{ text, color string }{
		{"  _      __           ", "#818cf8"},
		{" | |__  / _|___ _ __  ", "#a78bfa"},
		{" | '_ \\| |_/ __| '_ \\ ", "#c084fc"},
		{" | | | |  _\\__ \\ | | |", "#e879f9"},
		{" |_| |_|_| |___/_| |_|", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, r.profile.String(l.text).Foreground(r.profile.Color(l.color)))
	}
	fmt.Fprintln(w)
}
