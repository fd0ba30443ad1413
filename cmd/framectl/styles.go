package main

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	freeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	usedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	traceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// paint renders text with s unless --no-color is set.
func paint(s lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return s.Render(text)
}

func status(ok bool) string {
	if ok {
		return paint(okStyle, "ok")
	}
	return paint(failStyle, "FAIL")
}

func blockState(free bool) string {
	if free {
		return paint(freeStyle, "free")
	}
	return paint(usedStyle, "used")
}
