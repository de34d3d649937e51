package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	// Convenience styles for colors
	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Surface   = lipgloss.NewStyle().Background(SurfaceColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Recording state colors
	StateIdle      = lipgloss.Color("#9CA3AF") // Gray
	StateRecording = lipgloss.Color("#F87171") // Red
	StatePaused    = lipgloss.Color("#60A5FA") // Blue
	ZoomActive     = lipgloss.Color("#FBBF24") // Yellow

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	StatusBadge = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			MarginRight(1)

	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	// Help bar
	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1).
		PaddingBottom(1)

	// Messages
	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor)

	// Select lists
	DropdownItem = lipgloss.NewStyle().
			Foreground(TextColor)

	DropdownItemSelected = lipgloss.NewStyle().
				Bold(true).
				Foreground(TextColor).
				Background(PrimaryColor)
)

// StateColor returns the color for a recording state name
func StateColor(state string) lipgloss.Color {
	switch state {
	case "recording":
		return StateRecording
	case "paused":
		return StatePaused
	case "idle":
		return StateIdle
	default:
		return MutedColor
	}
}

// StateIcon returns an icon for a recording state name
func StateIcon(state string) string {
	switch state {
	case "recording":
		return "●"
	case "paused":
		return "⏸"
	case "idle":
		return "■"
	default:
		return "○"
	}
}

// StateBadge renders a state name as a colored badge
func StateBadge(state string) string {
	return StatusBadge.
		Foreground(TextColor).
		Background(StateColor(state)).
		Render(StateIcon(state) + " " + state)
}
