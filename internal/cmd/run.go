package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"gitsmart/internal/domain"
	"gitsmart/internal/prompt"
	"gitsmart/internal/server"
	"gitsmart/internal/services"
	"gitsmart/internal/session"
	"gitsmart/internal/watch"
)

// RunCmd starts the interactive assistant
type RunCmd struct {
	Path string `arg:"" optional:"" help:"Repository path or registered name (defaults to the current directory)"`

	ExitPresses int     `help:"Consecutive Ctrl+C presses that exit (0 = settings or 2)" default:"0"`
	Interval    float64 `help:"Seconds between change polls (0 = settings or 1.0)" default:"0"`
	NoRefresh   bool    `help:"Do not redraw the menu when the repository changes"`
	Serve       bool    `help:"Also run the companion server in this process"`
	ServerSSH   bool    `help:"Enable the SSH transport of the in-process server" name:"ssh"`
}

// Run executes the interactive loop
func (r *RunCmd) Run(cli *CLI) error {
	logger := cli.Logger()
	settings := cli.Config()
	c := cli.Container

	// SIGINT is left to the prompt bridge so Ctrl+C cancels prompts
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	git, repoName, err := r.repository(ctx, c)
	if err != nil {
		if errors.Is(err, domain.ErrNotGitRepository) {
			return fmt.Errorf("%w: run gitsmart inside a repository or register one with 'gitsmart repos add'", err)
		}
		return err
	}
	logger.Info("Starting interactive session", "repo", repoName, "path", git.Path())

	bridge := prompt.NewBridge(logger)
	bridge.Install()
	defer bridge.Close()

	var watcher session.Watcher
	if r.refreshEnabled(settings.RefreshEnabled()) {
		controller := watch.NewController(
			watch.NewDetector(git, logger),
			&watch.PendingRefresh{},
			bridge,
			watch.Options{
				Gate:     c.Coordinator,
				Interval: r.interval(settings.RefreshInterval()),
				Logger:   logger,
			},
		)
		bridge.SetGate(controller)
		watcher = controller
	}

	serverDone := make(chan error, 1)
	serverCtx, cancelServer := context.WithCancel(ctx)
	defer cancelServer()
	if r.Serve {
		srv, err := c.CompanionServer(serverOptions(settings, r.ServerSSH))
		if err != nil {
			return err
		}
		go func() {
			err := srv.Run(serverCtx)
			if errors.Is(err, domain.ErrServerRunning) {
				fmt.Fprintf(os.Stderr, "Companion server not started: %v\n", err)
			}
			serverDone <- err
		}()
		fmt.Printf("Companion server listening on http://%s%s\n", srv.Addr(), server.MCPPath)
	} else {
		serverDone <- nil
	}

	exitPresses := r.ExitPresses
	if exitPresses <= 0 {
		exitPresses = settings.ExitPressCount()
	}

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	sess := session.New(session.Options{
		Bridge:      bridge,
		ClearScreen: interactive,
		Committer:   c.CommitService,
		ExitPresses: exitPresses,
		Logger:      logger,
		Models:      c.SettingsService,
		Out:         os.Stdout,
		Pager:       session.NewTeaPager(os.Stdin, os.Stdout, interactive),
		Prompts:     prompt.NewPrompter(bridge, logger),
		Quiescence:  c.Coordinator,
		Repo:        git,
		RepoName:    repoName,
		Watcher:     watcher,
	})
	runErr := sess.Run(ctx)

	cancelServer()
	select {
	case err := <-serverDone:
		if err != nil {
			logger.Error("Companion server failed", "error", err)
			if runErr == nil && !errors.Is(err, domain.ErrServerRunning) {
				runErr = err
			}
		}
	case <-time.After(server.ShutdownTimeout):
		logger.Warn("Companion server did not stop in time")
	}
	return runErr
}

func (r *RunCmd) repository(ctx context.Context, c *Container) (*services.GitService, string, error) {
	if r.Path != "" {
		if _, err := os.Stat(r.Path); err != nil {
			// Not a directory on disk: treat it as a registered name or alias
			return c.CurrentRepository(ctx, "", r.Path)
		}
		return c.CurrentRepository(ctx, r.Path, "")
	}
	dir, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return c.CurrentRepository(ctx, dir, "")
}

func (r *RunCmd) refreshEnabled(fromSettings bool) bool {
	return fromSettings && !r.NoRefresh
}

func (r *RunCmd) interval(fromSettings time.Duration) time.Duration {
	if r.Interval > 0 {
		return time.Duration(r.Interval * float64(time.Second))
	}
	return fromSettings
}
