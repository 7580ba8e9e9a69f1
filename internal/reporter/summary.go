package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"go-easyapply-automation/internal/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle     = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).Padding(0, 1)
)

// RenderOutcomes draws outcomes as an aligned, colored table in a box.
func RenderOutcomes(title string, outcomes []models.Outcome) string {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")

	if len(outcomes) == 0 {
		sb.WriteString(mutedStyle.Render("no attempts recorded"))
		return boxStyle.Render(sb.String())
	}

	sb.WriteString(mutedStyle.Render(fmt.Sprintf("%-10s %-26s %-30s %-22s %6s %5s",
		"STATE", "REASON", "TITLE", "COMPANY", "SCORE", "STEPS")))
	for _, o := range outcomes {
		score := "-"
		if o.RelevanceScore != nil {
			score = fmt.Sprintf("%.1f", *o.RelevanceScore)
		}
		line := fmt.Sprintf("%-10s %-26s %-30s %-22s %6s %5d",
			o.State, o.ErrorKind, truncate(o.Title, 30), truncate(o.Company, 22), score, o.StepsCompleted)
		sb.WriteString("\n")
		sb.WriteString(stateStyle(o.State).Render(line))
	}
	return boxStyle.Render(sb.String())
}

// RenderSummary is the end-of-run box: totals followed by the outcome table.
func RenderSummary(s Summary) string {
	totals := renderTotals(s.Counts()) + "  " + mutedStyle.Render(s.Finished.Sub(s.Started).Round(time.Second).String())
	out := lipgloss.JoinVertical(lipgloss.Left, totals, RenderOutcomes("RUN "+s.RunID, s.Outcomes))
	if s.Err != nil {
		out += "\n" + errorStyle.Render("stopped: "+s.Err.Error())
	}
	return out
}

// RenderCounts draws stored per-state totals, as returned by the ledger.
func RenderCounts(title string, counts map[models.State]int) string {
	return boxStyle.Render(headerStyle.Render(title) + "\n" + renderTotals(counts))
}

func renderTotals(counts map[models.State]int) string {
	return fmt.Sprintf("%s  %s  %s",
		successStyle.Render(fmt.Sprintf("✅ %d submitted", counts[models.StateSubmitted])),
		warningStyle.Render(fmt.Sprintf("⏭️ %d skipped", counts[models.StateSkipped])),
		errorStyle.Render(fmt.Sprintf("💥 %d abandoned", counts[models.StateAbandoned])),
	)
}

func stateStyle(s models.State) lipgloss.Style {
	switch s {
	case models.StateSubmitted:
		return successStyle
	case models.StateAbandoned:
		return errorStyle
	}
	return warningStyle
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
