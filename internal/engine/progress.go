package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/dustin/go-humanize"
)

// Progress redraws a single status line for a running transfer.
type Progress struct {
	out      io.Writer
	interval time.Duration
}

func NewProgress(out io.Writer) *Progress {
	return &Progress{out: out, interval: time.Second}
}

// Run renders t once per interval until ctx is done, then prints the
// final summary line.
func (p *Progress) Run(ctx context.Context, t *domain.Transfer) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var lastBytes int64

	for {
		select {
		case <-ticker.C:
			current := t.BytesWritten.Load()
			delta := current - lastBytes
			lastBytes = current

			perSecond := float64(delta) / p.interval.Seconds()
			p.Render(t, perSecond, false)
		case <-ctx.Done():
			if t.State == domain.StateComplete {
				p.Render(t, 0, true)
			}
			fmt.Fprintln(p.out)
			return
		}
	}
}

// Render writes one progress line. final switches speed to the overall
// average and ETA to elapsed time.
func (p *Progress) Render(t *domain.Transfer, bytesPerSec float64, final bool) {
	current := t.BytesWritten.Load()
	total := t.TotalBytes
	if total <= 0 {
		return
	}

	elapsed := time.Since(t.StartedAt)
	percent := float64(current) / float64(total) * 100
	etaStr := "calc..."

	if final {
		percent = 100.0

		seconds := max(elapsed.Seconds(), 0.1)
		bytesPerSec = float64(current) / seconds
	} else if elapsed > 0 {
		avg := float64(current) / elapsed.Seconds()
		if avg > 0 {
			eta := time.Duration(float64(total-current)/avg) * time.Second
			etaStr = eta.Truncate(time.Second).String()
		}
	}

	// [====>    ]
	const barWidth = 20
	completedWidth := min(int(percent/100*barWidth), barWidth)
	bar := strings.Repeat("=", completedWidth)
	if completedWidth < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-completedWidth-1)
	}

	speedLabel := "Speed"
	timeLabel := "ETA"
	if final {
		speedLabel = "Avg"
		timeLabel = "Time"
		etaStr = elapsed.Truncate(time.Second).String()
	}

	fmt.Fprintf(p.out, "\r[%s] %5.1f%% | %s: %8s/s | %s: %-7s | %s / %s      ",
		bar, percent, speedLabel, humanize.Bytes(uint64(max(bytesPerSec, 0))), timeLabel, etaStr,
		humanize.Bytes(uint64(current)), humanize.Bytes(uint64(total)))
}

// WriteSummary prints one line per transfer with its final state.
func WriteSummary(out io.Writer, transfers []*domain.Transfer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATE\tSIZE\tERROR")
	for _, t := range transfers {
		size := "?"
		if t.TotalBytes > 0 {
			size = humanize.Bytes(uint64(t.TotalBytes))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.FileName, t.State, size, t.Error)
	}
	return tw.Flush()
}
