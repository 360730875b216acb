package tui

import (
	"os"
	"strconv"
	"strings"

	"schedule-cli/internal/calendar"
	"schedule-cli/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme/palette helpers.
//
// The TUI must remain readable on both light and dark terminal backgrounds.
// Colors are lipgloss.AdaptiveColor so flipping the background (the `D` key)
// restyles everything on the next render.

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

func faintIfDark(st lipgloss.Style) lipgloss.Style {
	if lipgloss.HasDarkBackground() {
		return st.Faint(true)
	}
	return st
}

var (
	colorMuted      = ac("240", "243")
	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")
	colorSurfaceBg  = ac("255", "235")
	colorSurfaceFg  = ac("235", "252")
	colorControlBg  = ac("252", "235")
	colorInputBg    = ac("254", "234")
	colorAccent     = ac("27", "62")
	colorAccentFg   = ac("255", "235")
	colorBorder     = ac("250", "243")

	colorPriorityHigh   = ac("160", "203")
	colorPriorityMedium = ac("172", "214")
	colorPriorityLow    = ac("28", "114")

	colorNoticeSuccess = ac("28", "71")
	colorNoticeInfo    = ac("27", "68")
	colorNoticeWarning = ac("172", "178")
	colorNoticeError   = ac("160", "167")
)

func styleMuted() lipgloss.Style {
	return faintIfDark(lipgloss.NewStyle().Foreground(colorMuted))
}

func priorityColor(p model.Priority) lipgloss.AdaptiveColor {
	switch p.Normalize() {
	case model.PriorityHigh:
		return colorPriorityHigh
	case model.PriorityMedium:
		return colorPriorityMedium
	default:
		return colorPriorityLow
	}
}

func noticeColor(k calendar.NoticeKind) lipgloss.AdaptiveColor {
	switch k {
	case calendar.NoticeSuccess:
		return colorNoticeSuccess
	case calendar.NoticeWarning:
		return colorNoticeWarning
	case calendar.NoticeError:
		return colorNoticeError
	default:
		return colorNoticeInfo
	}
}

// applyColorProfilePreference sets Lip Gloss's color profile for the interactive TUI.
//
// termenv.EnvColorProfile respects CLICOLOR/CLICOLOR_FORCE, which can disable
// colors in a TUI. Here we only honor NO_COLOR and otherwise follow the
// terminal's capabilities.
func applyColorProfilePreference() {
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}

	profile := termenv.ColorProfile()
	term := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	colorterm := strings.ToLower(strings.TrimSpace(os.Getenv("COLORTERM")))
	if strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit") {
		if profile != termenv.Ascii {
			profile = termenv.TrueColor
		}
	} else if strings.Contains(term, "256color") && profile != termenv.TrueColor {
		profile = termenv.ANSI256
	}
	lipgloss.SetColorProfile(profile)
}

// applyThemePreference configures Lip Gloss's background detection.
//
// Priority:
// 1) theme (SCHEDULE_THEME or config theme) = light|dark
// 2) COLORFGBG heuristic ("fg;bg")
// 3) Lip Gloss's own detection
func applyThemePreference(theme string) {
	switch strings.ToLower(strings.TrimSpace(theme)) {
	case "light":
		lipgloss.SetHasDarkBackground(false)
		return
	case "dark":
		lipgloss.SetHasDarkBackground(true)
		return
	}

	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			// Common xterm palette: 0-6 dark colors, 7-15 light colors.
			lipgloss.SetHasDarkBackground(bg < 7)
		}
	}
}

// themeName reports the palette currently in effect.
func themeName() string {
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}
