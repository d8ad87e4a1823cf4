// Package ui holds the interactive prompts and styled output of toursctl.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42")).
			MarginBottom(1)

	successStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
)

// AdminInput is what create-admin asks for.
type AdminInput struct {
	Name     string
	Email    string
	Password string
}

// RunAdminForm prompts for the fields of in that are still empty.
func RunAdminForm(in *AdminInput) error {
	var fields []huh.Field

	if in.Name == "" {
		fields = append(fields, huh.NewInput().
			Title("Name").
			Value(&in.Name).
			Validate(required("name")))
	}
	if in.Email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Placeholder("admin@natours.io").
			Value(&in.Email).
			Validate(required("email")))
	}
	if in.Password == "" {
		var confirm string
		fields = append(fields,
			huh.NewInput().
				Title("Password").
				Description("At least 8 characters").
				EchoMode(huh.EchoModePassword).
				Value(&in.Password).
				Validate(func(s string) error {
					if len(s) < 8 {
						return fmt.Errorf("password must be at least 8 characters")
					}
					return nil
				}),
			huh.NewInput().
				Title("Confirm password").
				EchoMode(huh.EchoModePassword).
				Value(&confirm).
				Validate(func(s string) error {
					if s != in.Password {
						return fmt.Errorf("passwords are not the same")
					}
					return nil
				}),
		)
	}

	if len(fields) == 0 {
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin()).Run()
}

// Confirm asks a yes/no question and defaults to no.
func Confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(huh.ThemeCatppuccin()).Run()
	return ok, err
}

func PrintTitle(msg string) {
	fmt.Println(titleStyle.Render(msg))
}

func PrintSuccess(msg string) {
	fmt.Println(successStyle.Render(msg))
}

// PrintDetail prints an indented, dimmed key/value line.
func PrintDetail(key, value string) {
	fmt.Println(subtleStyle.Render(fmt.Sprintf("  %-8s %s", key+":", value)))
}

// PrintError prints an error message.
func PrintError(msg string) {
	fmt.Println(errorStyle.Render("Error: " + msg))
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}
