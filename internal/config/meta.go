package config

// GetSettingsExample returns a fully populated settings document for `settings meta`
func GetSettingsExample() *Settings {
	autoRefresh := true
	interval := DefaultAutoRefreshInterval
	debug := false
	exitPresses := DefaultExitPresses
	maxLogFiles := 1000
	maxTokens := DefaultMaxTokens
	temperature := DefaultTemperature
	useEmojis := false
	port := DefaultServerPort
	sshPort := DefaultSSHPort

	return &Settings{
		API: APISettings{
			APIURL:      DefaultAPIURL,
			AuthToken:   "sk-...",
			MaxTokens:   &maxTokens,
			Model:       DefaultModel,
			Models:      StringArray{DefaultModel, "gpt-4o"},
			Temperature: &temperature,
		},
		AutoRefresh:         &autoRefresh,
		AutoRefreshInterval: &interval,
		Debug:               &debug,
		ExitPresses:         &exitPresses,
		MaxLogFiles:         &maxLogFiles,
		Prompting:           PromptingSettings{UseEmojis: &useEmojis},
		Server: ServerSettings{
			AuthorizedKeys: "~/.ssh/authorized_keys",
			Host:           DefaultServerHost,
			Port:           &port,
			SSHPort:        &sshPort,
		},
	}
}
