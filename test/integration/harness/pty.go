package harness

import (
	"bytes"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
)

// Interactive is a gitsmart process attached to a pseudo-terminal.
type Interactive struct {
	cmd  *exec.Cmd
	done chan error
	mu   sync.Mutex
	out  bytes.Buffer
	ptmx *os.File
	tb   testing.TB
}

// StartInteractive runs gitsmart in dir on a 120x40 pty.
func StartInteractive(tb testing.TB, env *TestEnvironment, dir string, args ...string) *Interactive {
	tb.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = dir
	cmd.Env = append(env.Environ(), "TERM=xterm-256color")

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 40, Cols: 120})
	if err != nil {
		tb.Fatalf("Failed to start %v on a pty: %v", args, err)
	}

	i := &Interactive{cmd: cmd, done: make(chan error, 1), ptmx: ptmx, tb: tb}
	go i.drain()
	go func() { i.done <- cmd.Wait() }()

	tb.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = ptmx.Close()
	})
	return i
}

func (i *Interactive) drain() {
	buf := make([]byte, 4096)
	for {
		n, err := i.ptmx.Read(buf)
		if n > 0 {
			i.mu.Lock()
			i.out.Write(buf[:n])
			i.mu.Unlock()
		}
		if err != nil {
			// EIO once the child closes its side
			return
		}
	}
}

// Output returns everything the process has written so far.
func (i *Interactive) Output() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.out.String()
}

// WaitFor polls the output until it contains s.
func (i *Interactive) WaitFor(s string) {
	i.tb.Helper()
	deadline := time.Now().Add(defaultTimeout)
	for time.Now().Before(deadline) {
		if strings.Contains(i.Output(), s) {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	i.tb.Fatalf("Timed out waiting for %q.\nOutput: %s", s, i.Output())
}

// Send writes raw bytes to the terminal.
func (i *Interactive) Send(s string) {
	i.tb.Helper()
	if _, err := i.ptmx.Write([]byte(s)); err != nil {
		i.tb.Fatalf("Failed to write to pty: %v", err)
	}
}

// Wait blocks until the process exits and returns its exit code.
func (i *Interactive) Wait() int {
	i.tb.Helper()
	select {
	case err := <-i.done:
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode()
		}
		if err != nil {
			i.tb.Fatalf("Process failed: %v", err)
		}
		return 0
	case <-time.After(defaultTimeout):
		i.tb.Fatalf("Timed out waiting for exit.\nOutput: %s", i.Output())
		return -1
	}
}
