package cfg

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"mediadl/internal/domain/consts"
	"mediadl/internal/models"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// statusLabel renders a job status for the terminal, e.g. "Downloading".
func statusLabel(s consts.JobStatus) string {
	return titleCaser.String(string(s))
}

// progressLine renders one snapshot, cut to width when width is positive.
func progressLine(p models.Progress, width int) string {
	var b strings.Builder
	b.WriteString(statusLabel(p.Status))

	switch p.Status {
	case consts.StatusQueue, consts.StatusStarting:
	case consts.StatusFinished:
		if p.OutputPath != "" {
			b.WriteString(": ")
			b.WriteString(p.OutputPath)
		}
	case consts.StatusStopped, consts.StatusFailed:
		if p.Error != "" {
			b.WriteString(": ")
			b.WriteString(p.Error)
		}
	default:
		if p.TotalKnown() {
			fmt.Fprintf(&b, " %5.1f%% %s / %s", p.Percent*100,
				humanize.Bytes(uint64(max(p.Downloaded, 0))), humanize.Bytes(uint64(p.Total)))
		} else {
			fmt.Fprintf(&b, " %s", humanize.Bytes(uint64(max(p.Downloaded, 0))))
		}
		if p.EstimatedSecondsLeft != nil {
			fmt.Fprintf(&b, " ETA %s", formatETA(*p.EstimatedSecondsLeft))
		}
	}

	line := b.String()
	if width > 0 && utf8.RuneCountInString(line) > width {
		line = string([]rune(line)[:width])
	}
	return line
}

// formatETA renders seconds as a whole-second duration.
func formatETA(secs float64) string {
	return (time.Duration(secs * float64(time.Second))).Round(time.Second).String()
}

// progressPrinter rewrites a single status line on terminals and prints
// one line per status change elsewhere.
type progressPrinter struct {
	w     io.Writer
	tty   bool
	width int
	last  consts.JobStatus
}

func newProgressPrinter(f *os.File) *progressPrinter {
	p := &progressPrinter{w: f}
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		p.tty = true
		if w, _, err := term.GetSize(fd); err == nil {
			p.width = w - 1
		}
	}
	return p
}

func (pp *progressPrinter) print(p models.Progress) {
	defer func() { pp.last = p.Status }()

	if !pp.tty {
		if p.Status != pp.last || p.Status.IsTerminal() {
			fmt.Fprintln(pp.w, progressLine(p, 0))
		}
		return
	}

	line := progressLine(p, pp.width)
	pad := ""
	if n := pp.width - utf8.RuneCountInString(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(pp.w, "\r%s%s", line, pad)
	if p.Status.IsTerminal() {
		fmt.Fprintln(pp.w)
	}
}
