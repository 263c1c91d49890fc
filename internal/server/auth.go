package server

import (
	"bufio"
	"bytes"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/ssh"
	gossh "golang.org/x/crypto/ssh"
)

// keyAuthorizer accepts public keys listed in an authorized_keys file. The
// file is read on every attempt so edits apply without a restart.
type keyAuthorizer struct {
	logger *slog.Logger
	path   string
}

func (a keyAuthorizer) handler(ctx ssh.Context, key ssh.PublicKey) bool {
	fingerprint := gossh.FingerprintSHA256(key)
	if !a.authorized(key) {
		a.logger.Warn("Unauthorized SSH key",
			"user", ctx.User(),
			"remote_addr", ctx.RemoteAddr().String(),
			"fingerprint", fingerprint,
			"key_type", key.Type())
		return false
	}
	a.logger.Info("SSH key authenticated",
		"user", ctx.User(),
		"fingerprint", fingerprint,
		"key_type", key.Type())
	return true
}

func (a keyAuthorizer) authorized(clientKey ssh.PublicKey) bool {
	file, err := os.Open(a.path)
	if err != nil {
		a.logger.Warn("Failed to open authorized_keys", "error", err, "path", a.path)
		return false
	}
	defer file.Close()

	want := clientKey.Marshal()
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, _, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			a.logger.Debug("Skipping unparseable authorized key", "error", err)
			continue
		}
		if bytes.Equal(want, key.Marshal()) {
			return true
		}
	}
	if err := scanner.Err(); err != nil {
		a.logger.Error("Error reading authorized_keys", "error", err)
	}
	return false
}
