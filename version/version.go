package version

import "fmt"

// Tagline is shown in help text
const Tagline = "AI commit messages and a live git status menu"

// Build information injected at build time via ldflags
// Example: -ldflags="-X gitsmart/version.Version=v1.0.0 -X gitsmart/version.Commit=abc123"
var (
	Commit    = "unknown"
	Date      = "unknown"
	GoVersion = "unknown"
	Version   = "dev"
)

// Info returns formatted version information
func Info() string {
	return fmt.Sprintf("gitsmart %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}
