package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrNotTerminal is returned by prompts when stdin is not interactive
var ErrNotTerminal = errors.New("stdin is not a terminal")

// PromptPassword reads a password from the terminal without echo
func PromptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", ErrNotTerminal
	}

	fmt.Print(lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true).Render(prompt))
	pw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

// Confirm asks a yes/no question on out and reads the answer from in.
// Anything other than y or yes is a no.
func Confirm(in io.Reader, out io.Writer, question string) bool {
	style := lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	_, _ = fmt.Fprint(out, style.Render(question+" [y/N]: "))

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		_, _ = fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
