package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestEnvironment provides an isolated test environment with its own GITSMART_HOME.
type TestEnvironment struct {
	GitsmartHome string
	extraEnv     map[string]string
	tb           testing.TB
}

// NewTestEnvironment creates an isolated test environment with a temp GITSMART_HOME.
// The temp directory is automatically cleaned up when the test completes.
func NewTestEnvironment(tb testing.TB) *TestEnvironment {
	tb.Helper()

	return &TestEnvironment{
		GitsmartHome: tb.TempDir(),
		extraEnv:     make(map[string]string),
		tb:           tb,
	}
}

// Environ returns environment variables configured for test isolation.
// It filters out GITSMART_* variables and sets:
//   - GITSMART_HOME to the temp directory
//   - GITSMART_DEBUG to empty string (disables debug logging)
//   - GITSMART_API_TOKEN to a dummy value so no real endpoint is used
func (e *TestEnvironment) Environ() []string {
	env := make([]string, 0, len(os.Environ())+3+len(e.extraEnv))

	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "GITSMART_") {
			continue
		}
		if _, overridden := e.extraEnv[key]; overridden {
			continue
		}
		env = append(env, kv)
	}

	env = append(env,
		"GITSMART_HOME="+e.GitsmartHome,
		"GITSMART_DEBUG=",
		"GITSMART_API_TOKEN=integration-test",
	)

	for k, v := range e.extraEnv {
		env = append(env, k+"="+v)
	}

	return env
}

// DBPath returns the path to the test database.
func (e *TestEnvironment) DBPath() string {
	return filepath.Join(e.GitsmartHome, "state.db")
}

// SettingsPath returns the path to the test settings file.
func (e *TestEnvironment) SettingsPath() string {
	return filepath.Join(e.GitsmartHome, "settings.json")
}

// WriteSettings writes raw JSON to the settings file.
func (e *TestEnvironment) WriteSettings(content string) {
	e.tb.Helper()
	if err := os.WriteFile(e.SettingsPath(), []byte(content), 0644); err != nil {
		e.tb.Fatalf("Failed to write settings: %v", err)
	}
}

// SetEnv sets an additional environment variable for this test environment.
func (e *TestEnvironment) SetEnv(key, value string) {
	e.extraEnv[key] = value
}
