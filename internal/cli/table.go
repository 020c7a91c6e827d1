package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/fleetdeck/fleetdeck/internal/model"
)

// RenderDiscoveryTable writes the discovery candidate list as a table.
// claimed derives each row's claim marker from the current selection
// snapshot; it may be nil.
func RenderDiscoveryTable(w io.Writer, candidates []model.DiscoveryCandidate, claimed func(model.Candidate) bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "Publisher", "Match", "Confidence", "Devices", "Detected", "Claimed"})

	for _, c := range candidates {
		mark := ""
		if claimed != nil && claimed(c) {
			mark = SuccessIcon
		}
		t.AppendRow(table.Row{
			c.Name,
			c.PublisherName,
			formatMatchTier(c.Match),
			fmt.Sprintf("%.0f%%", c.Confidence*100),
			c.DeviceCount,
			formatDay(c.DetectedAt),
			mark,
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

// RenderUpdateTable writes the update candidate list as a table.
func RenderUpdateTable(w io.Writer, candidates []model.UpdateCandidate, claimed func(model.Candidate) bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Name", "Publisher", "Current", "Latest", "Delta", "Devices", "Applied"})

	for _, c := range candidates {
		mark := ""
		if claimed != nil && claimed(c) {
			mark = SuccessIcon
		}
		t.AppendRow(table.Row{
			c.Name,
			c.PublisherName,
			c.CurrentVersion,
			c.LatestVersion,
			formatUpdateTier(c.Delta),
			c.DeviceCount,
			mark,
		})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

func formatMatchTier(tier model.MatchTier) string {
	switch tier {
	case model.MatchConfirmed:
		return SuccessStyle.Render(string(tier))
	case model.MatchPartial:
		return WarningStyle.Render(string(tier))
	case model.MatchNone:
		return ErrorStyle.Render(string(tier))
	default:
		return SubtleStyle.Render(string(tier))
	}
}

func formatUpdateTier(tier model.UpdateTier) string {
	switch tier {
	case model.UpdateMajor:
		return ErrorStyle.Render(string(tier))
	case model.UpdateMinor:
		return WarningStyle.Render(string(tier))
	default:
		return SuccessStyle.Render(string(tier))
	}
}

func formatDay(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format("2006-01-02")
}
