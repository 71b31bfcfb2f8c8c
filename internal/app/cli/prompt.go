package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var errRequired = errors.New("value is required")

var styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
	Label:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
	Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
	Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
	Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
}

// field is a value that is prompted for when no flag set it.
type field struct {
	value    *string
	title    string
	password bool
}

// promptMissing asks for every field that is still empty, in one form.
func promptMissing(fields ...field) error {
	var inputs []huh.Field

	for _, f := range fields {
		if strings.TrimSpace(*f.value) != "" {
			continue
		}

		input := huh.NewInput().
			Title(f.title).
			Value(f.value).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errRequired
				}

				return nil
			})

		if f.password {
			input = input.EchoMode(huh.EchoModePassword)
		}

		inputs = append(inputs, input)
	}

	if len(inputs) == 0 {
		return nil
	}

	if err := huh.NewForm(huh.NewGroup(inputs...)).Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	return nil
}
