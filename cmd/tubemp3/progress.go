package main

import (
	"fmt"
	"io"
	"math"

	"github.com/Belphemur/TubeMP3/internal/models"
)

// progressPrinter renders progress records as one line per meaningful change
type progressPrinter struct {
	w       io.Writer
	last    models.ProgressRecord
	printed bool
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

// Print writes rec unless it only moved the overall fraction by less than a percent
func (p *progressPrinter) Print(rec models.ProgressRecord) {
	if p.printed &&
		rec.Phase == p.last.Phase &&
		rec.CurrentItem == p.last.CurrentItem &&
		rec.CurrentTitle == p.last.CurrentTitle &&
		math.Abs(rec.OverallFraction-p.last.OverallFraction) < 1 {
		return
	}
	p.last = rec
	p.printed = true

	item := ""
	if rec.TotalItems > 1 {
		item = fmt.Sprintf(" [%d/%d]", rec.CurrentItem, rec.TotalItems)
	}
	title := rec.CurrentTitle
	if title != "" {
		title = " " + title
	}
	fmt.Fprintf(p.w, "%5.1f%% %-11s%s%s\n", rec.OverallFraction, rec.Phase, item, title)
}

// printResponse lists produced files and isolated playlist failures
func printResponse(w io.Writer, resp *models.DownloadResponse) {
	switch resp.Kind {
	case models.SourcePlaylist:
		pl := resp.Playlist
		for _, item := range pl.Items {
			printItem(w, item)
		}
		for _, f := range pl.Failed {
			fmt.Fprintf(w, "failed   #%d %s: %s\n", f.Index, f.Title, f.Error)
		}
		fmt.Fprintf(w, "%d of %d items in %s\n", len(pl.Items), pl.TotalItems, pl.OutputDir)
	default:
		if resp.Single != nil {
			printItem(w, *resp.Single)
		}
	}
}

func printItem(w io.Writer, item models.DownloadItemResult) {
	state := "saved  "
	if item.Skipped {
		state = "present"
	}
	fmt.Fprintf(w, "%s  %s\n", state, item.OutputPath)
}
