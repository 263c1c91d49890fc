package theme

import "github.com/charmbracelet/lipgloss"

// Color is an alias for lipgloss.Color for convenience
type Color = lipgloss.Color

// Brand colors
const (
	ColorPrimary   Color = "99" // Purple - app name, titles
	ColorSecondary Color = "86" // Cyan - subtitles, file names
)

// Change colors
const (
	ColorAdditions Color = "2"   // Green
	ColorDeletions Color = "1"   // Red
	ColorStaged    Color = "42"  // Bright green - staged section
	ColorUnstaged  Color = "214" // Orange - unstaged section
)

// UI semantic colors
const (
	ColorError     Color = "196" // Bright red
	ColorHighlight Color = "255" // White - emphasis
	ColorMuted     Color = "241" // Gray - secondary text
	ColorNormal    Color = "250" // Default text
	ColorPanel     Color = "235" // Near black - commit panel background
	ColorSuccess   Color = "46"  // Green
	ColorWarning   Color = "226" // Yellow
)
