package domain

import "time"

// Repository is a working tree registered with gitsmart
type Repository struct {
	Aliases      []string  `json:"aliases"`
	IsCurrent    bool      `json:"is_current"`
	LastAccessed time.Time `json:"last_accessed"`
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	RemoteURL    string    `json:"remote_url,omitempty"`
}

// Matches reports whether identifier is the repository's name or one of its aliases
func (r Repository) Matches(identifier string) bool {
	if r.Name == identifier {
		return true
	}
	for _, a := range r.Aliases {
		if a == identifier {
			return true
		}
	}
	return false
}

// Remote is a configured git remote (first URL wins)
type Remote struct {
	Name string
	URL  string
}

// Commit is a single history entry
type Commit struct {
	Author  string
	Body    string
	Date    time.Time
	Hash    string
	Subject string
}

// ShortHash returns the abbreviated hash used in tables
func (c Commit) ShortHash() string {
	if len(c.Hash) > 7 {
		return c.Hash[:7]
	}
	return c.Hash
}

// RepositoryStatus is what the companion server reports for get_repository_status
type RepositoryStatus struct {
	Branch    string       `json:"branch"`
	Name      string       `json:"name"`
	Operation string       `json:"operation_in_progress,omitempty"`
	Path      string       `json:"path"`
	RemoteURL string       `json:"remote_url,omitempty"`
	Staged    []FileChange `json:"staged"`
	Unstaged  []FileChange `json:"unstaged"`
}
