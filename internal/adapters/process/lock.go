package process

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// FileLock is an exclusive, non-blocking OS lock on a file that also records
// the holder's PID. The OS drops the lock when the holder dies, so a stale
// file never blocks a new server.
type FileLock struct {
	logger *slog.Logger
	path   string

	mu   sync.Mutex
	file *os.File
}

// Compile-time interface verification
var _ ports.InstanceLock = (*FileLock)(nil)

// NewFileLock creates a lock for path; nothing is opened until Acquire
func NewFileLock(path string, logger *slog.Logger) *FileLock {
	return &FileLock{
		logger: logging.OrDiscard(logger),
		path:   path,
	}
}

// Acquire implements InstanceLock.Acquire
func (l *FileLock) Acquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := tryLockFile(file); err != nil {
		file.Close()
		pid := readPID(l.path)
		l.logger.Warn("Server lock held by another process", "path", l.path, "pid", pid)
		if pid > 0 {
			return fmt.Errorf("%w (pid %d)", domain.ErrServerRunning, pid)
		}
		return domain.ErrServerRunning
	}

	if err := file.Truncate(0); err != nil {
		unlockFile(file)
		file.Close()
		return fmt.Errorf("failed to truncate lock file: %w", err)
	}
	if _, err := file.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		unlockFile(file)
		file.Close()
		return fmt.Errorf("failed to write lock file: %w", err)
	}

	l.file = file
	l.logger.Info("Server lock acquired", "path", l.path, "pid", os.Getpid())
	return nil
}

// HolderPID implements InstanceLock.HolderPID
func (l *FileLock) HolderPID() int {
	return readPID(l.path)
}

// Release implements InstanceLock.Release. Releasing an unheld lock is a no-op.
func (l *FileLock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	// Clear the PID before unlocking so a reader never sees a stale holder
	_ = l.file.Truncate(0)
	unlockErr := unlockFile(l.file)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		return fmt.Errorf("failed to unlock: %w", unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close lock file: %w", closeErr)
	}

	l.logger.Info("Server lock released", "path", l.path)
	return nil
}

func readPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
