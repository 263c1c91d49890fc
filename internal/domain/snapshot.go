package domain

import (
	"maps"
	"slices"
)

// FileStat holds the line counts git reports for a single changed file
type FileStat struct {
	Additions uint `json:"additions"`
	Deletions uint `json:"deletions"`
}

// FileChange is a FileStat paired with its path, used where ordering matters
type FileChange struct {
	FileStat
	Path string `json:"file"`
}

// Snapshot captures the staged and unstaged changes of a working tree at one instant.
// A Snapshot is a value: it is never mutated after construction.
type Snapshot struct {
	Staged   map[string]FileStat
	Unstaged map[string]FileStat
}

// NewSnapshot builds a snapshot from ordered change lists
func NewSnapshot(staged, unstaged []FileChange) Snapshot {
	return Snapshot{
		Staged:   toStatMap(staged),
		Unstaged: toStatMap(unstaged),
	}
}

func toStatMap(changes []FileChange) map[string]FileStat {
	m := make(map[string]FileStat, len(changes))
	for _, c := range changes {
		m[c.Path] = c.FileStat
	}
	return m
}

// Equal reports whether both snapshots hold the same paths with the same counts.
// A nil map and an empty map compare equal.
func (s Snapshot) Equal(other Snapshot) bool {
	return maps.Equal(s.Staged, other.Staged) && maps.Equal(s.Unstaged, other.Unstaged)
}

// IsEmpty reports whether there are no staged and no unstaged changes
func (s Snapshot) IsEmpty() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0
}

// StagedChanges returns the staged changes sorted by path
func (s Snapshot) StagedChanges() []FileChange {
	return sortedChanges(s.Staged)
}

// UnstagedChanges returns the unstaged changes sorted by path
func (s Snapshot) UnstagedChanges() []FileChange {
	return sortedChanges(s.Unstaged)
}

func sortedChanges(m map[string]FileStat) []FileChange {
	paths := slices.Sorted(maps.Keys(m))
	changes := make([]FileChange, 0, len(paths))
	for _, p := range paths {
		changes = append(changes, FileChange{FileStat: m[p], Path: p})
	}
	return changes
}

// Totals sums additions and deletions over a change list
func Totals(changes []FileChange) (additions, deletions uint) {
	for _, c := range changes {
		additions += c.Additions
		deletions += c.Deletions
	}
	return additions, deletions
}
