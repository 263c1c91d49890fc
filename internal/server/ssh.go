package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
)

const sshUsage = `usage:
  stage <repo> <file>...
  unstage <repo> <file>...
  add <repo> <file>...
  commit <repo> [message]
  switch <repo>
  status <repo>
  repos`

func newSSHServer(h *Handlers, addr, hostKeyPath, authorizedKeys string, logger *slog.Logger) (*ssh.Server, error) {
	auth := keyAuthorizer{logger: logger, path: authorizedKeys}
	srv, err := wish.NewServer(
		wish.WithAddress(addr),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithPublicKeyAuth(auth.handler),
		wish.WithMiddleware(
			commandMiddleware(h),
			logMiddleware(logger),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH server: %w", err)
	}
	return srv, nil
}

// commandMiddleware runs one remote command per session and exits with 0
// on success, 1 on failure and 2 on a usage error
func commandMiddleware(h *Handlers) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			code := h.runCommand(sess.Context(), sess.Command(), sess, sess.Stderr())
			_ = sess.Exit(code)
		}
	}
}

// logMiddleware records every session with its duration. It wraps the
// command middleware, so it runs first.
func logMiddleware(logger *slog.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			start := time.Now()
			logger.Info("SSH session started",
				"user", sess.User(),
				"remote_addr", sess.RemoteAddr().String(),
				"command", sess.Command())
			next(sess)
			logger.Info("SSH session ended",
				"user", sess.User(),
				"duration", time.Since(start).String())
		}
	}
}

// runCommand dispatches args to the handlers and writes the JSON result to out
func (h *Handlers) runCommand(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, sshUsage)
		return 2
	}

	var result any
	ok := true
	switch cmd, rest := args[0], args[1:]; {
	case cmd == "repos" && len(rest) == 0:
		names, err := h.Repositories(ctx)
		if err != nil {
			result, ok = failure(err), false
		} else {
			result = map[string][]string{"repositories": names}
		}
	case cmd == "status" && len(rest) == 1:
		status, err := h.Status(ctx, rest[0])
		if err != nil {
			result, ok = failure(err), false
		} else {
			result = status
		}
	case cmd == "switch" && len(rest) == 1:
		r := h.Switch(ctx, rest[0])
		result, ok = r, r.Success
	case cmd == "commit" && (len(rest) == 1 || len(rest) == 2):
		message := ""
		if len(rest) == 2 {
			message = rest[1]
		}
		r := h.Commit(ctx, rest[0], message)
		result, ok = r, r.Success
	case (cmd == "stage" || cmd == "unstage" || cmd == "add") && len(rest) >= 2:
		var r Result
		switch cmd {
		case "stage":
			r = h.Stage(ctx, rest[0], rest[1:])
		case "unstage":
			r = h.Unstage(ctx, rest[0], rest[1:])
		default:
			r = h.Add(ctx, rest[0], rest[1:])
		}
		result, ok = r, r.Success
	default:
		fmt.Fprintln(errOut, sshUsage)
		return 2
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		h.logger.Error("Failed to write SSH result", "error", err)
		return 1
	}
	if !ok {
		return 1
	}
	return 0
}
