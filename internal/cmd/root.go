package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"gitsmart/internal/config"
	"gitsmart/internal/logging"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Debug       bool             `help:"Enable debug logging to file" short:"d"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000"`

	Run      RunCmd      `cmd:"" help:"Start the interactive assistant (default)" default:"withargs"`
	Serve    ServeCmd    `cmd:"serve" help:"Run the companion server (MCP over HTTP, optional SSH)"`
	Repos    ReposCmd    `cmd:"repos" help:"Manage registered repositories"`
	Status   StatusCmd   `cmd:"status" help:"Print staged and unstaged changes"`
	Log      LogCmd      `cmd:"log" help:"Print recent commits"`
	Settings SettingsCmd `cmd:"settings" help:"Show settings file location and available options"`

	// Internal fields (not flags)
	Container *Container       `kong:"-"`
	logger    *slog.Logger     `kong:"-"`
	settings  *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// Config returns the loaded settings, never nil
func (c *CLI) Config() *config.Settings {
	if c.settings == nil {
		c.settings = &config.Settings{}
	}
	return c.settings
}

// Logger returns the application logger
func (c *CLI) Logger() *slog.Logger {
	return logging.OrDiscard(c.logger)
}

// AfterApply applies settings with precedence flags > env > settings.json >
// defaults, then initializes logging and the dependency container
func (c *CLI) AfterApply() error {
	settings := c.Config()

	if c.MaxLogFiles == logging.DefaultMaxLogFiles {
		if _, hasEnv := os.LookupEnv(logging.EnvMaxLogFiles); !hasEnv && settings.MaxLogFiles != nil {
			c.MaxLogFiles = *settings.MaxLogFiles
		}
	}
	if !c.Debug {
		if _, hasEnv := os.LookupEnv(logging.EnvDebug); !hasEnv && settings.Debug != nil && *settings.Debug {
			c.Debug = true
		}
	}

	logger, logFilePath, err := logging.Initialize(c.Debug, c.DebugFile, c.MaxLogFiles)
	if err != nil {
		return err
	}
	c.logger = logger

	// Child processes (git hooks, editors) append to the same log
	if c.Debug || c.DebugFile != "" {
		os.Setenv(logging.EnvDebug, "1")
		if logFilePath != "" {
			os.Setenv(logging.EnvDebugFile, logFilePath)
		}
	}
	if c.MaxLogFiles != logging.DefaultMaxLogFiles {
		os.Setenv(logging.EnvMaxLogFiles, strconv.Itoa(c.MaxLogFiles))
	}

	container, err := NewContainer(settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	c.Container = container
	return nil
}

// Close closes all resources held by the CLI
func (c *CLI) Close() error {
	if c.Container != nil {
		return c.Container.Close()
	}
	return nil
}
