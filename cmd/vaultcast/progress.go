package main

import (
	"fmt"
	"io"
	"strings"

	"vaultcast/internal/api"
)

const progressBarWidth = 24

// progressPrinter renders generation progress. A terminal gets one line that
// is redrawn in place; other writers get a line per state or segment change.
type progressPrinter struct {
	out      io.Writer
	inPlace  bool
	last     string
	drawn    bool
	lastSeen api.Episode
}

func newProgressPrinter(out io.Writer, inPlace bool) *progressPrinter {
	return &progressPrinter{out: out, inPlace: inPlace}
}

func (p *progressPrinter) update(episode api.Episode) {
	line := progressLine(episode)
	if line == p.last {
		return
	}
	if p.inPlace {
		fmt.Fprintf(p.out, "\r%-*s", len(p.last), line)
		p.drawn = true
	} else if p.last == "" || episode.State != p.lastSeen.State || episode.CompletedChunks != p.lastSeen.CompletedChunks {
		fmt.Fprintln(p.out, line)
	}
	p.last = line
	p.lastSeen = episode
}

// finish terminates an in-place line.
func (p *progressPrinter) finish() {
	if p.inPlace && p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

func progressLine(episode api.Episode) string {
	filled := int(episode.Progress * progressBarWidth)
	filled = max(0, min(filled, progressBarWidth))
	bar := strings.Repeat("#", filled) + strings.Repeat(".", progressBarWidth-filled)
	line := fmt.Sprintf("[%s] %3.0f%% %s", bar, episode.Progress*100, episode.State)
	if episode.TotalChunks > 0 {
		line += fmt.Sprintf(" %d/%d", episode.CompletedChunks, episode.TotalChunks)
	}
	return line
}
