package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

// ShutdownTimeout bounds graceful shutdown of both listeners
const ShutdownTimeout = 30 * time.Second

// MCPPath is where the streamable HTTP endpoint is mounted
const MCPPath = "/mcp"

// Options configures the companion server
type Options struct {
	AuthorizedKeys string
	HostKeyPath    string
	Host           string
	Logger         *slog.Logger
	Port           int
	// SSHPort of 0 disables the SSH transport
	SSHPort int
	Version string
}

// Server serves the remote handlers over MCP streamable HTTP and,
// optionally, SSH commands
type Server struct {
	httpServer *http.Server
	lock       ports.InstanceLock
	logger     *slog.Logger
	sshServer  *ssh.Server
}

// New builds the server. Nothing listens until Run.
func New(h *Handlers, lock ports.InstanceLock, opts Options) (*Server, error) {
	logger := logging.OrDiscard(opts.Logger)

	mux := http.NewServeMux()
	mux.Handle(MCPPath, server.NewStreamableHTTPServer(
		NewMCPServer(h, opts.Version),
		server.WithEndpointPath(MCPPath),
	))

	s := &Server{
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		lock:   lock,
		logger: logger,
	}

	if opts.SSHPort > 0 {
		sshServer, err := newSSHServer(h,
			net.JoinHostPort(opts.Host, strconv.Itoa(opts.SSHPort)),
			opts.HostKeyPath,
			opts.AuthorizedKeys,
			logger)
		if err != nil {
			return nil, err
		}
		s.sshServer = sshServer
	}
	return s, nil
}

// Addr returns the HTTP listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Run takes the single-instance lock, serves until ctx is done and then
// shuts both listeners down within ShutdownTimeout
func (s *Server) Run(ctx context.Context) error {
	if err := s.lock.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := s.lock.Release(); err != nil {
			s.logger.Warn("Failed to release server lock", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting MCP server", "address", s.httpServer.Addr, "path", MCPPath)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("MCP server failed: %w", err)
		}
		return nil
	})

	if s.sshServer != nil {
		g.Go(func() error {
			s.logger.Info("Starting SSH server", "address", s.sshServer.Addr)
			if err := s.sshServer.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				return fmt.Errorf("SSH server failed: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("Shutting down companion server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown MCP server: %w", err))
		}
		if s.sshServer != nil {
			if err := s.sshServer.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown SSH server: %w", err))
			}
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	s.logger.Info("Companion server stopped", "error", err)
	return err
}
