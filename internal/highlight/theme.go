package highlight

import (
	"fmt"
	"log/slog"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"
)

type Theme int

const (
	ThemeAuto Theme = iota
	ThemeLight
	ThemeDark
)

func (t Theme) String() string {
	switch t {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

var detectDarkMode = darkmode.IsDarkMode

func ThemeFromString(raw string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", ThemeAuto.String():
		return ThemeAuto, nil
	case ThemeLight.String():
		return ThemeLight, nil
	case ThemeDark.String():
		return ThemeDark, nil
	default:
		return ThemeAuto, fmt.Errorf("unknown theme %q (want auto, light or dark)", raw)
	}
}

// Resolve turns ThemeAuto into light or dark using the desktop setting.
// Detection failures fall back to light.
func (t Theme) Resolve() Theme {
	if t != ThemeAuto {
		return t
	}
	if detectDarkMode == nil {
		return ThemeLight
	}
	dark, err := detectDarkMode()
	if err != nil {
		slog.Debug("detect dark-mode", slog.Any("error", err))
		return ThemeLight
	}
	if dark {
		return ThemeDark
	}
	return ThemeLight
}
