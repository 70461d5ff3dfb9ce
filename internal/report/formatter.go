package report

import (
	"fmt"
	"strings"

	"GreenDeck/internal/deck"
	"GreenDeck/internal/model"
)

var statusMark = map[model.SectionStatus]string{
	model.StatusCompleted: "[x]",
	model.StatusCurrent:   "[>]",
	model.StatusUpcoming:  "[ ]",
}

// FormatProgress renders a learner's position and per-section status.
func FormatProgress(d *deck.Deck, state model.ProgressState, derived model.DerivedState) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s (%s)\n", d.Title, d.Edition))
	b.WriteString(fmt.Sprintf("Slide %d of %d | %.0f%%\n", state.CurrentSlide+1, d.Len(), derived.ProgressPercent))
	if slide, ok := d.Slide(state.CurrentSlide); ok && slide.Title != "" {
		b.WriteString(fmt.Sprintf("Now: %s\n", slide.Title))
	}
	b.WriteString("\n")

	percents := make(map[int]float64, len(derived.Sections))
	for _, sp := range derived.Sections {
		percents[sp.SectionID] = sp.Percent
	}
	for _, sec := range d.Sections {
		status := derived.SectionStatuses[sec.ID]
		b.WriteString(fmt.Sprintf("%s %-26s slides %2d-%-2d %3.0f%%\n",
			statusMark[status], sec.Title, sec.First+1, sec.Last+1, percents[sec.ID]))
	}

	if len(state.CompletedMilestones) > 0 {
		ids := make([]string, len(state.CompletedMilestones))
		for i, id := range state.CompletedMilestones {
			ids[i] = fmt.Sprintf("%d", id)
		}
		b.WriteString(fmt.Sprintf("\nCompleted goals: %s\n", strings.Join(ids, ", ")))
	}
	return b.String()
}

// FormatBondComparison renders the conventional vs. green table.
func FormatBondComparison(c model.BondComparison) string {
	var b strings.Builder
	p := c.Parameters

	b.WriteString("Green Bond Price Sensitivity\n")
	b.WriteString(fmt.Sprintf("C = %.2f%%, r = %.2f%% (conv) or %.2f%% (green), T = %d years, F = $%.0f\n\n",
		p.CouponRate, c.Conventional.Rate, c.Green.Rate, p.MaturityYears, p.FaceValue))

	b.WriteString(fmt.Sprintf("%-20s %14s %14s\n", "Metric", "Conventional", "Green"))
	b.WriteString(strings.Repeat("-", 50) + "\n")
	row := func(label, conv, green string) {
		b.WriteString(fmt.Sprintf("%-20s %14s %14s\n", label, conv, green))
	}
	row("Price", fmt.Sprintf("$%.2f", c.Conventional.Price), fmt.Sprintf("$%.2f", c.Green.Price))
	row("Yield", fmt.Sprintf("%.2f%%", c.Conventional.Rate), fmt.Sprintf("%.2f%%", c.Green.Rate))
	row("Macaulay duration", fmt.Sprintf("%.2f years", c.Conventional.MacaulayDuration), fmt.Sprintf("%.2f years", c.Green.MacaulayDuration))
	row("Modified duration", fmt.Sprintf("%.2f", c.Conventional.ModifiedDuration), fmt.Sprintf("%.2f", c.Green.ModifiedDuration))
	row("Convexity", fmt.Sprintf("%.2f", c.Conventional.Convexity), fmt.Sprintf("%.2f", c.Green.Convexity))

	b.WriteString(fmt.Sprintf("\nPrice difference: $%.2f (%.2f%%)\n", c.PriceDifference, c.PercentDifference))
	return b.String()
}

// FormatSnapshotSummary is the one-line summary the snapshot job logs.
func FormatSnapshotSummary(learners int, avgPercent float64, completed int) string {
	return fmt.Sprintf("%d active learners, average progress %.1f%%, %d goals completed", learners, avgPercent, completed)
}
