package cmd

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"gitsmart/internal/config"
)

// SettingsCmd manages settings
type SettingsCmd struct {
	Meta SettingsMetaCmd `cmd:"meta" help:"Show settings file location and available options" default:"1"`
}

// SettingsMetaCmd displays settings metadata
type SettingsMetaCmd struct {
	Format string `help:"Output format: table or json" enum:"table,json" default:"table"`
}

// Run executes the meta command
func (s *SettingsMetaCmd) Run(cli *CLI) error {
	settingsFile := config.GetSettingsPath()
	example := config.GetSettingsExample()

	if s.Format == "json" {
		output := map[string]any{
			"settings_file": settingsFile,
			"format":        example,
		}
		data, err := json.MarshalIndent(output, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	data, err := json.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to flatten settings: %w", err)
	}
	flat := map[string]any{}
	flatten("", tree, flat)

	fmt.Printf("Settings file: %s\n\n", settingsFile)
	fmt.Println("Available settings (example values):")
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, key := range slices.Sorted(maps.Keys(flat)) {
		value, _ := json.Marshal(flat[key])
		fmt.Fprintf(w, "%s\t%s\n", key, value)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Create or edit this file to configure gitsmart.")
	fmt.Println("All settings are optional and have sensible defaults.")
	fmt.Println("GITSMART_API_TOKEN overrides api.auth_token.")
	return nil
}

// flatten turns nested objects into dotted keys
func flatten(prefix string, node map[string]any, out map[string]any) {
	for key, value := range node {
		if prefix != "" {
			key = prefix + "." + key
		}
		if child, ok := value.(map[string]any); ok {
			flatten(key, child, out)
			continue
		}
		out[key] = value
	}
}
