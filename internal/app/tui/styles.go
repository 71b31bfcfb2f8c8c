package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/mkrupp/fintrack/internal/app/session"
	"github.com/mkrupp/fintrack/internal/domain"
)

// Styles contains the lipgloss styles of the application.
type Styles struct {
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Menu      lipgloss.Style
	MenuItem  lipgloss.Style
	Active    lipgloss.Style
	Card      lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Income    lipgloss.Style
	Expense   lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Muted     lipgloss.Style
	Spinner   lipgloss.Style
	Table     table.Styles
	HealthBad lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	tableStyles := table.DefaultStyles()
	tableStyles.Header = tableStyles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	tableStyles.Selected = tableStyles.Selected.
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("63")).
		Bold(false)

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginBottom(1),
		Menu: lipgloss.NewStyle().
			MarginBottom(1),
		MenuItem: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingRight(2),
		Active: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("63")).
			Bold(true).
			Padding(0, 1).
			MarginRight(1),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 2).
			MarginRight(1),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true),
		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")),
		Income: lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")),
		Expense: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")),
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")),
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")),
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Spinner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")),
		Table: tableStyles,
		HealthBad: lipgloss.NewStyle().
			Foreground(lipgloss.Color("208")).
			Bold(true),
	}
}

func (s Styles) notice(n session.Notice) string {
	style := s.Success
	if n.Level == session.NoticeError {
		style = s.Error
	}

	return style.Render(n.Title) + " " + s.Value.Render(n.Message)
}

func (s Styles) health(status domain.HealthStatus) lipgloss.Style {
	switch status {
	case domain.HealthExcellent, domain.HealthGood:
		return s.Success
	case domain.HealthFair:
		return s.Warning
	default:
		return s.HealthBad
	}
}
