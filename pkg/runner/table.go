package runner

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	questionCellWidth = 60
	answerCellWidth   = 40
)

// RenderResultsTable renders the per-task results log as a bordered table.
func RenderResultsTable(results []TaskResult) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("TASK ID", "QUESTION", "SUBMITTED ANSWER")

	for _, res := range results {
		t.Row(res.TaskID, truncateCell(res.Question, questionCellWidth), truncateCell(res.SubmittedAnswer(), answerCellWidth))
	}

	return t.Render()
}

func truncateCell(s string, maxChars int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars-3]) + "..."
}
