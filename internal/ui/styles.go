// Package ui renders the rotation and replacement-queue panels the CLI's
// query commands print, with lipgloss the same way the teacher renders its
// own terminal output.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	ColorMuted  = lipgloss.Color("240")
	ColorAccent = lipgloss.Color("33")
	ColorPass   = lipgloss.Color("42")
	ColorWarn   = lipgloss.Color("214")
)

var (
	panelBoxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorMuted).
		Padding(0, 1).
		Margin(1, 0)

	panelTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorAccent)

	panelSectionStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(ColorMuted).
		Padding(0, 0).
		MarginTop(0)

	nextRepStyle = lipgloss.NewStyle().
		Foreground(ColorPass).
		Bold(true)

	openMarkStyle = lipgloss.NewStyle().
		Foreground(ColorWarn)
)

// RotationRow is the subset of query.RotationRow the panel needs to render
// one line, kept independent of the query package so ui has no dependency
// on the engine's internal packages.
type RotationRow struct {
	RepID           string
	DisplayPosition int
	Hits            int
	IsNext          bool
	HasOpenMark     bool
}

// RotationPanel holds the data for rendering one lane's query_rotation
// result (spec.md §4.9, §6 query_rotation).
type RotationPanel struct {
	Lane   string
	Window string
	Rows   []RotationRow
}

// RenderRotationPanel renders a lane's rotation sequence as a bordered
// table, marking the next rep to receive a lead and any rep with an open
// replacement mark against their position.
func RenderRotationPanel(p RotationPanel) string {
	var sections []string

	header := fmt.Sprintf("Rotation — %s (%s)", p.Lane, p.Window)
	sections = append(sections, panelTitleStyle.Render(header))

	var lines []string
	for _, row := range p.Rows {
		marker := "  "
		if row.IsNext {
			marker = nextRepStyle.Render("▶ ")
		}
		line := fmt.Sprintf("%s%2d. %-16s hits=%d", marker, row.DisplayPosition, row.RepID, row.Hits)
		if row.HasOpenMark {
			line += " " + openMarkStyle.Render("[open mark]")
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, "(no active reps in this lane)")
	}
	sections = append(sections, panelSectionStyle.Render(strings.Join(lines, "\n")))

	return panelBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// QueueRow is the subset of query.QueueRow the panel needs.
type QueueRow struct {
	RepID          string
	OriginalLeadID string
	AccountNumber  string
	MarkedAt       string
}

// ReplacementQueuePanel holds the data for rendering a lane's open
// replacement queue (spec.md §6 query_replacement_queue).
type ReplacementQueuePanel struct {
	Lane string
	Rows []QueueRow
}

// RenderReplacementQueuePanel renders lane's FIFO open replacement queue.
func RenderReplacementQueuePanel(p ReplacementQueuePanel) string {
	var sections []string

	header := fmt.Sprintf("Replacement queue — %s", p.Lane)
	sections = append(sections, panelTitleStyle.Render(header))

	var lines []string
	for i, row := range p.Rows {
		lines = append(lines, fmt.Sprintf("%2d. %-16s lead=%s acct=%s marked=%s",
			i+1, row.RepID, row.OriginalLeadID, row.AccountNumber, row.MarkedAt))
	}
	if len(lines) == 0 {
		lines = append(lines, "(no open replacement marks)")
	}
	sections = append(sections, panelSectionStyle.Render(strings.Join(lines, "\n")))

	return panelBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// StatsPanel renders query_rotation's statistics bundle: total leads,
// leaderboard, and leads needing replacement.
type StatsPanel struct {
	Window                  string
	TotalLeads              int
	LeadsNeedingReplacement int
	MostAssigned            []RepCount
	LeastAssigned           []RepCount
}

// RepCount is one leaderboard row.
type RepCount struct {
	RepID string
	Count int
}

// RenderStatsPanel renders the statistics bundle as a bordered summary.
func RenderStatsPanel(p StatsPanel) string {
	var sections []string

	header := fmt.Sprintf("Stats — %s", p.Window)
	sections = append(sections, panelTitleStyle.Render(header))

	lines := []string{
		fmt.Sprintf("Total leads placed: %d", p.TotalLeads),
		fmt.Sprintf("Leads needing replacement: %d", p.LeadsNeedingReplacement),
	}
	if len(p.MostAssigned) > 0 {
		lines = append(lines, "", "Most assigned:")
		for _, rc := range topN(p.MostAssigned, 5) {
			lines = append(lines, fmt.Sprintf("  %-16s %d", rc.RepID, rc.Count))
		}
	}
	if len(p.LeastAssigned) > 0 {
		lines = append(lines, "", "Least assigned:")
		for _, rc := range topN(p.LeastAssigned, 5) {
			lines = append(lines, fmt.Sprintf("  %-16s %d", rc.RepID, rc.Count))
		}
	}
	sections = append(sections, panelSectionStyle.Render(strings.Join(lines, "\n")))

	return panelBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func topN(rcs []RepCount, n int) []RepCount {
	if len(rcs) <= n {
		return rcs
	}
	return rcs[:n]
}
