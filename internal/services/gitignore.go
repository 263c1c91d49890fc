package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const (
	ignoreStartMarker = "# >>> Managed by GitSmart >>>"
	ignoreEndMarker   = "# <<< Managed by GitSmart <<<"
)

// IgnoredPatterns returns the patterns in the managed section of .gitignore
func (s *GitService) IgnoredPatterns() ([]string, error) {
	content, err := s.readGitignore()
	if err != nil {
		return nil, err
	}
	patterns, _ := splitManagedSection(content)
	return patterns, nil
}

// Ignore adds patterns to the managed section of .gitignore and returns the
// ones that were not already present
func (s *GitService) Ignore(patterns []string) ([]string, error) {
	content, err := s.readGitignore()
	if err != nil {
		return nil, err
	}

	existing, rest := splitManagedSection(content)
	var added []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(existing, p) || slices.Contains(added, p) {
			continue
		}
		added = append(added, p)
	}
	if len(added) == 0 {
		return nil, nil
	}

	all := append(slices.Clone(existing), added...)
	slices.Sort(all)

	var sb strings.Builder
	if trimmed := strings.TrimSpace(rest); trimmed != "" {
		sb.WriteString(trimmed)
		sb.WriteString("\n\n")
	}
	sb.WriteString(ignoreStartMarker + "\n")
	for _, p := range all {
		sb.WriteString(p + "\n")
	}
	sb.WriteString(ignoreEndMarker + "\n")

	if err := os.WriteFile(s.gitignorePath(), []byte(sb.String()), 0644); err != nil {
		return nil, fmt.Errorf("failed to write .gitignore: %w", err)
	}
	s.logger.Info("Updated .gitignore", "repo", s.repoPath, "added", added)
	return added, nil
}

func (s *GitService) gitignorePath() string {
	return filepath.Join(s.repoPath, ".gitignore")
}

func (s *GitService) readGitignore() (string, error) {
	data, err := os.ReadFile(s.gitignorePath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read .gitignore: %w", err)
	}
	return string(data), nil
}

// splitManagedSection separates the managed patterns from the rest of the file
func splitManagedSection(content string) (patterns []string, rest string) {
	var other []string
	inside := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == ignoreStartMarker:
			inside = true
		case trimmed == ignoreEndMarker:
			inside = false
		case inside:
			if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
				patterns = append(patterns, trimmed)
			}
		default:
			other = append(other, line)
		}
	}
	return patterns, strings.Join(other, "\n")
}
