package viz

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// Theme colours the residual map: Low and High are the gradient endpoints
// for the smallest and largest residuals.
type Theme struct {
	Name   string
	Low    lipgloss.Color
	High   lipgloss.Color
	Path   lipgloss.Color
	Marker lipgloss.Color
	Muted  lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:   "cyberpunk",
		Low:    lipgloss.Color("#00ffff"),
		High:   lipgloss.Color("#2a0033"),
		Path:   lipgloss.Color("#ff00ff"),
		Marker: lipgloss.Color("#ffff00"),
		Muted:  lipgloss.Color("#666666"),
	}

	ThemeRetroGreen = Theme{
		Name:   "retro",
		Low:    lipgloss.Color("#88ff88"), // green phosphor
		High:   lipgloss.Color("#002200"),
		Path:   lipgloss.Color("#ffff00"),
		Marker: lipgloss.Color("#ffffff"),
		Muted:  lipgloss.Color("#005500"),
	}

	ThemeOcean = Theme{
		Name:   "ocean",
		Low:    lipgloss.Color("#e0f0ff"),
		High:   lipgloss.Color("#001a33"),
		Path:   lipgloss.Color("#ffd700"),
		Marker: lipgloss.Color("#ff4444"),
		Muted:  lipgloss.Color("#4488aa"),
	}

	ThemeSunset = Theme{
		Name:   "sunset",
		Low:    lipgloss.Color("#feca57"),
		High:   lipgloss.Color("#2d1b2e"),
		Path:   lipgloss.Color("#5fd068"),
		Marker: lipgloss.Color("#ff4757"),
		Muted:  lipgloss.Color("#8b6b8c"),
	}

	Themes = map[string]Theme{
		ThemeCyberpunk.Name:  ThemeCyberpunk,
		ThemeRetroGreen.Name: ThemeRetroGreen,
		ThemeOcean.Name:      ThemeOcean,
		ThemeSunset.Name:     ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to cyberpunk.
func GetTheme(name string) Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return ThemeCyberpunk
}

func ThemeNames() []string {
	names := make([]string, 0, len(Themes))
	for name := range Themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
