package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gitsmart/internal/config"
	"gitsmart/internal/server"
	"gitsmart/version"
)

// ServeCmd runs the companion server until interrupted
type ServeCmd struct {
	AuthorizedKeys string `help:"authorized_keys file for SSH clients (default ~/.ssh/authorized_keys)"`
	Host           string `help:"Host to bind to (default settings or 127.0.0.1)"`
	Port           int    `help:"MCP HTTP port (default settings or 8765)"`
	SSH            bool   `help:"Also accept commands over SSH"`
	SSHPort        int    `help:"SSH port (default settings or 2322)" name:"ssh-port"`
}

// Run executes the serve command
func (s *ServeCmd) Run(cli *CLI) error {
	logger := cli.Logger()
	opts := serverOptions(cli.Config(), s.SSH)
	if s.Host != "" {
		opts.Host = s.Host
	}
	if s.Port > 0 {
		opts.Port = s.Port
	}
	if s.SSH && s.SSHPort > 0 {
		opts.SSHPort = s.SSHPort
	}
	if s.AuthorizedKeys != "" {
		opts.AuthorizedKeys = config.ExpandPath(s.AuthorizedKeys)
	}

	srv, err := cli.Container.CompanionServer(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting companion server", "address", srv.Addr(), "ssh_port", opts.SSHPort)
	fmt.Printf("MCP server listening on http://%s%s\n", srv.Addr(), server.MCPPath)
	if opts.SSHPort > 0 {
		fmt.Printf("SSH commands accepted on %s:%d\n", opts.Host, opts.SSHPort)
	}
	return srv.Run(ctx)
}

// serverOptions resolves server settings; SSH stays off unless enabled
func serverOptions(settings *config.Settings, enableSSH bool) server.Options {
	host, port, sshPort := settings.ServerAddress()
	if !enableSSH {
		sshPort = 0
	}

	authorizedKeys := settings.Server.AuthorizedKeys
	if authorizedKeys == "" {
		if home, err := os.UserHomeDir(); err == nil {
			authorizedKeys = filepath.Join(home, ".ssh", "authorized_keys")
		}
	}

	return server.Options{
		AuthorizedKeys: authorizedKeys,
		Host:           host,
		Port:           port,
		SSHPort:        sshPort,
		Version:        version.Version,
	}
}
