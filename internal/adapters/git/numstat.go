package git

import (
	"fmt"
	"strconv"
	"strings"

	"gitsmart/internal/domain"
)

// parseNumstat parses `git diff --numstat -z` output. A plain entry is
// "ADDED<TAB>DELETED<TAB>PATH<NUL>"; a rename leaves PATH empty and follows
// with "OLD<NUL>NEW<NUL>", reported by its destination. Binary files report
// "-" for both counts. Paths are taken verbatim, unquoted.
func parseNumstat(output string) ([]domain.FileChange, error) {
	var changes []domain.FileChange

	fields := strings.Split(output, "\x00")
	for i := 0; i < len(fields); i++ {
		entry := fields[i]
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, "\t", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("unexpected numstat entry: %q", entry)
		}

		additions, err := parseCount(parts[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse additions in %q: %w", entry, err)
		}
		deletions, err := parseCount(parts[1])
		if err != nil {
			return nil, fmt.Errorf("failed to parse deletions in %q: %w", entry, err)
		}

		path := parts[2]
		if path == "" {
			if i+2 >= len(fields) {
				return nil, fmt.Errorf("truncated numstat rename after %q", entry)
			}
			path = fields[i+2]
			i += 2
		}

		changes = append(changes, domain.FileChange{
			FileStat: domain.FileStat{Additions: additions, Deletions: deletions},
			Path:     path,
		})
	}

	return changes, nil
}

func parseCount(s string) (uint, error) {
	if s == "-" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(n), nil
}

// parseRemotes parses `git remote -v`, keeping the first URL per remote
func parseRemotes(output string) []domain.Remote {
	var remotes []domain.Remote
	seen := make(map[string]bool)

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || seen[fields[0]] {
			continue
		}
		seen[fields[0]] = true
		remotes = append(remotes, domain.Remote{Name: fields[0], URL: fields[1]})
	}

	return remotes
}

// splitNul returns the non-empty entries of NUL-separated output
func splitNul(output string) []string {
	var entries []string
	for _, entry := range strings.Split(output, "\x00") {
		if entry != "" {
			entries = append(entries, entry)
		}
	}
	return entries
}
