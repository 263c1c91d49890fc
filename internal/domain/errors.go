package domain

import "errors"

var (
	ErrAliasTaken          = errors.New("alias already in use")
	ErrNoStagedChanges     = errors.New("no staged changes found")
	ErrNotGitRepository    = errors.New("not inside a git repository")
	ErrRepositoryExists    = errors.New("repository already registered")
	ErrRepositoryNotFound  = errors.New("repository not found")
	ErrServerRunning       = errors.New("a gitsmart server is already running")
	ErrUnparseableResponse = errors.New("could not extract commit message from response")
)
