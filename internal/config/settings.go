package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults applied when neither flags, env nor settings.json provide a value
const (
	DefaultAPIURL              = "https://api.openai.com/v1/chat/completions"
	DefaultAutoRefreshInterval = 1.0
	DefaultExitPresses         = 2
	DefaultMaxTokens           = 16000
	DefaultModel               = "gpt-4o-mini"
	DefaultServerHost          = "127.0.0.1"
	DefaultServerPort          = 8765
	DefaultSSHPort             = 2322
	DefaultTemperature         = 0.7
)

// APISettings configures the chat completion endpoint
type APISettings struct {
	APIURL      string      `json:"api_url,omitempty"`
	AuthToken   string      `json:"auth_token,omitempty"`
	MaxTokens   *int        `json:"max_tokens,omitempty"`
	Model       string      `json:"model,omitempty"`
	Models      StringArray `json:"models,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
}

// PromptingSettings tunes the commit message prompt
type PromptingSettings struct {
	UseEmojis *bool `json:"use_emojis,omitempty"`
}

// ServerSettings configures the companion server
type ServerSettings struct {
	AuthorizedKeys string `json:"authorized_keys,omitempty"`
	Host           string `json:"host,omitempty"`
	Port           *int   `json:"port,omitempty"`
	SSHPort        *int   `json:"ssh_port,omitempty"`
}

// Settings represents the structure of ~/.gitsmart/settings.json
type Settings struct {
	API                 APISettings       `json:"api,omitempty"`
	AutoRefresh         *bool             `json:"auto_refresh,omitempty"`
	AutoRefreshInterval *float64          `json:"auto_refresh_interval,omitempty"`
	Debug               *bool             `json:"debug,omitempty"`
	ExitPresses         *int              `json:"exit_presses,omitempty"`
	MaxLogFiles         *int              `json:"max_log_files,omitempty"`
	Prompting           PromptingSettings `json:"prompting,omitempty"`
	Server              ServerSettings    `json:"server,omitempty"`
}

// StringArray supports both JSON arrays and comma-separated strings
type StringArray []string

// UnmarshalJSON implements custom unmarshaling for StringArray
func (sa *StringArray) UnmarshalJSON(data []byte) error {
	// Try array format first
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*sa = arr
		return nil
	}

	// Fall back to comma-separated string
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*sa = parseCommaSeparated(str)
	return nil
}

// parseCommaSeparated splits comma-separated string and trims whitespace
func parseCommaSeparated(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// RefreshEnabled reports whether the auto-refresh watcher should run
func (s *Settings) RefreshEnabled() bool {
	return s.AutoRefresh == nil || *s.AutoRefresh
}

// RefreshInterval returns the polling interval. Non-positive values fall back to the default.
func (s *Settings) RefreshInterval() time.Duration {
	seconds := DefaultAutoRefreshInterval
	if s.AutoRefreshInterval != nil && *s.AutoRefreshInterval > 0 {
		seconds = *s.AutoRefreshInterval
	}
	return time.Duration(seconds * float64(time.Second))
}

// ExitPressCount returns how many consecutive cancels end the session
func (s *Settings) ExitPressCount() int {
	if s.ExitPresses != nil && *s.ExitPresses > 0 {
		return *s.ExitPresses
	}
	return DefaultExitPresses
}

// UseEmojis reports whether commit prompts ask for gitmoji prefixes
func (s *Settings) UseEmojis() bool {
	return s.Prompting.UseEmojis != nil && *s.Prompting.UseEmojis
}

// Endpoint resolves the API settings, applying GITSMART_API_TOKEN and defaults
func (s *Settings) Endpoint() APISettings {
	api := s.API
	if token := os.Getenv("GITSMART_API_TOKEN"); token != "" {
		api.AuthToken = token
	}
	if api.APIURL == "" {
		api.APIURL = DefaultAPIURL
	}
	if api.Model == "" {
		api.Model = DefaultModel
	}
	if api.MaxTokens == nil {
		v := DefaultMaxTokens
		api.MaxTokens = &v
	}
	if api.Temperature == nil {
		v := DefaultTemperature
		api.Temperature = &v
	}
	return api
}

// ServerAddress returns the host and both ports for the companion server
func (s *Settings) ServerAddress() (host string, port, sshPort int) {
	host, port, sshPort = DefaultServerHost, DefaultServerPort, DefaultSSHPort
	if s.Server.Host != "" {
		host = s.Server.Host
	}
	if s.Server.Port != nil {
		port = *s.Server.Port
	}
	if s.Server.SSHPort != nil {
		sshPort = *s.Server.SSHPort
	}
	return host, port, sshPort
}

// LoadSettings loads settings from $GITSMART_HOME/settings.json (or ~/.gitsmart/settings.json if not set)
// Returns empty Settings if file doesn't exist (not an error)
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(GetSettingsPath())
}

// LoadSettingsFrom loads settings from an explicit path
func LoadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil // Not an error, use defaults
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}

	if settings.Server.AuthorizedKeys != "" {
		settings.Server.AuthorizedKeys = ExpandPath(settings.Server.AuthorizedKeys)
	}

	return &settings, nil
}

// SaveSettings saves settings to $GITSMART_HOME/settings.json
func SaveSettings(settings *Settings) error {
	path := GetSettingsPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}
