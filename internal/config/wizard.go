package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

// Wizard runs the interactive setup wizard.
// If reader is nil, reads from os.Stdin.
func Wizard(reader io.Reader, out io.Writer) error {
	if reader == nil {
		reader = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	scanner := bufio.NewScanner(reader)
	ask := func(prompt string) string {
		fmt.Fprint(out, prompt)
		scanner.Scan()
		return strings.TrimSpace(scanner.Text())
	}

	fmt.Fprintln(out, "sheetdash setup")
	fmt.Fprintln(out, strings.Repeat("-", 48))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 1/3: Chart suggestions")
	fmt.Fprintln(out, "  Where should chart suggestions come from?")
	fmt.Fprintln(out, "  [1] Anthropic Claude (recommended)")
	fmt.Fprintln(out, "  [2] OpenAI")
	fmt.Fprintln(out, "  [3] Ollama (local, free)")
	fmt.Fprintln(out, "  [4] A remote suggestion service")
	fmt.Fprintln(out, "  [5] Skip for now")

	switch ask("  Choice: ") {
	case "1":
		viper.Set("provider", "anthropic")
		if key := ask("  Anthropic API key (sk-ant-...): "); key != "" {
			viper.Set("api_keys.anthropic", key)
		}
	case "2":
		viper.Set("provider", "openai")
		if key := ask("  OpenAI API key (sk-...): "); key != "" {
			viper.Set("api_keys.openai", key)
		}
	case "3":
		viper.Set("provider", "ollama")
		host := ask("  Ollama host (default: http://localhost:11434): ")
		if host == "" {
			host = "http://localhost:11434"
		}
		viper.Set("ollama.host", host)
	case "4":
		viper.Set("suggest.endpoint", ask("  Suggestion endpoint URL: "))
		if token := ask("  Bearer token (optional): "); token != "" {
			viper.Set("suggest.token", token)
		}
	default:
		fmt.Fprintln(out, "  Skipped")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Step 2/3: Storage")
	if db := ask(fmt.Sprintf("  Database path (default: %s): ", viper.GetString("storage.database"))); db != "" {
		viper.Set("storage.database", db)
	}
	if dir := ask(fmt.Sprintf("  Upload directory (default: %s): ", viper.GetString("storage.blob_dir"))); dir != "" {
		viper.Set("storage.blob_dir", dir)
	}
	fmt.Fprintln(out)

	if err := SaveConfig(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}

	fmt.Fprintln(out, "Step 3/3: Done")
	fmt.Fprintln(out, strings.Repeat("-", 48))
	fmt.Fprintln(out, "Quick start:")
	fmt.Fprintln(out, "  dash file upload sales.xlsx")
	fmt.Fprintln(out, "  dash dashboard create \"Q3 sales\" --file <file-id>")
	fmt.Fprintln(out, "  dash dashboard suggest <dashboard-id> --apply")
	fmt.Fprintln(out, "  dash serve")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Config file: %s\n", ConfigPath())
	return nil
}

// WizardNonInteractive writes the defaults to the config file without prompting.
func WizardNonInteractive() error {
	setDefaults(configDir())
	return SaveConfig()
}

// Validate checks config values and returns a list of issues.
func Validate() []ConfigIssue {
	var issues []ConfigIssue

	if endpoint := viper.GetString("suggest.endpoint"); endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			issues = append(issues, ConfigIssue{
				Key:      "suggest.endpoint",
				Severity: "error",
				Message:  fmt.Sprintf("suggest.endpoint %q is not an http(s) URL", endpoint),
				Fix:      "dash config set suggest.endpoint https://host/api/suggest-charts",
			})
		} else {
			issues = append(issues, ConfigIssue{
				Key:      "suggest.endpoint",
				Severity: "info",
				Message:  "Remote suggestion service configured",
			})
		}
	} else {
		issues = append(issues, validateProvider()...)
	}

	if n := viper.GetInt("suggest.sample_rows"); n < 5 || n > 10 {
		issues = append(issues, ConfigIssue{
			Key:      "suggest.sample_rows",
			Severity: "warning",
			Message:  fmt.Sprintf("suggest.sample_rows is %d; it will be clamped to 5..10", n),
			Fix:      "dash config set suggest.sample_rows 10",
		})
	}

	if viper.GetInt64("upload.max_bytes") <= 0 {
		issues = append(issues, ConfigIssue{
			Key:      "upload.max_bytes",
			Severity: "warning",
			Message:  "upload.max_bytes is not positive; the 20 MiB default applies",
		})
	}

	if viper.GetString("user.id") == "" {
		issues = append(issues, ConfigIssue{
			Key:      "user.id",
			Severity: "error",
			Message:  "user.id is empty; files and dashboards need an owner",
			Fix:      "dash config set user.id local",
		})
	}

	if p := viper.GetInt("server.port"); p <= 0 || p > 65535 {
		issues = append(issues, ConfigIssue{
			Key:      "server.port",
			Severity: "error",
			Message:  fmt.Sprintf("server.port %d is out of range", p),
			Fix:      "dash config set server.port 8080",
		})
	}

	switch strings.ToLower(viper.GetString("log.format")) {
	case "", "text", "json":
	default:
		issues = append(issues, ConfigIssue{
			Key:      "log.format",
			Severity: "warning",
			Message:  fmt.Sprintf("log.format %q is unknown; text is used", viper.GetString("log.format")),
		})
	}

	return issues
}

func validateProvider() []ConfigIssue {
	provider := viper.GetString("provider")
	switch provider {
	case "anthropic", "openai":
		if key, _ := GetAPIKey(provider); key == "" {
			env := envKeyNames[provider]
			return []ConfigIssue{{
				Key:      "provider",
				Severity: "error",
				Message:  fmt.Sprintf("provider is %q but %s is not set", provider, env),
				Fix:      fmt.Sprintf("export %s=...\nOr: dash config set api_keys.%s ...", env, provider),
			}}
		}
		return []ConfigIssue{{
			Key:      "provider",
			Severity: "info",
			Message:  fmt.Sprintf("%s API key configured", provider),
		}}
	case "ollama":
		return []ConfigIssue{{
			Key:      "provider",
			Severity: "info",
			Message:  "Ollama configured (no API key needed)",
		}}
	default:
		return []ConfigIssue{{
			Key:      "provider",
			Severity: "error",
			Message:  fmt.Sprintf("unknown provider %q", provider),
			Fix:      "dash config set provider anthropic",
		}}
	}
}

// ToEnv returns all config values as a map of env var name -> value.
func ToEnv() map[string]string {
	env := make(map[string]string)

	if k := viper.GetString("api_keys.anthropic"); k != "" {
		env["ANTHROPIC_API_KEY"] = k
	}
	if k := viper.GetString("api_keys.openai"); k != "" {
		env["OPENAI_API_KEY"] = k
	}
	for _, key := range []string{
		"provider", "model", "ollama.host", "openai.base_url",
		"suggest.endpoint", "suggest.sample_rows",
		"storage.database", "storage.blob_dir", "user.id",
		"server.host", "server.port", "log.level", "log.format",
	} {
		if v := viper.GetString(key); v != "" {
			env["DASH_"+strings.ToUpper(envKeys.Replace(key))] = v
		}
	}

	return env
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	viper.Set(key, value)
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// ResetConfig removes the config file and restores the defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	viper.Reset()
	setDefaults(configDir())
	return nil
}

// SaveConfig writes the current config to the config file.
func SaveConfig() error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	// Set secure permissions
	os.Chmod(path, 0600)
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig returns a formatted string of the current configuration.
func ShowConfig() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Config: %s\n\n", ConfigPath())

	sb.WriteString("Suggestions\n")
	if endpoint := viper.GetString("suggest.endpoint"); endpoint != "" {
		fmt.Fprintf(&sb, "  endpoint:    %s\n", endpoint)
	} else {
		fmt.Fprintf(&sb, "  provider:    %s\n", viper.GetString("provider"))
		fmt.Fprintf(&sb, "  model:       %s\n", viper.GetString("model"))
		if k := viper.GetString("api_keys." + viper.GetString("provider")); k != "" {
			fmt.Fprintf(&sb, "  key:         %s****\n", k[:min(10, len(k))])
		}
	}
	fmt.Fprintf(&sb, "  sample rows: %d\n\n", viper.GetInt("suggest.sample_rows"))

	sb.WriteString("Storage\n")
	fmt.Fprintf(&sb, "  database:    %s\n", viper.GetString("storage.database"))
	fmt.Fprintf(&sb, "  uploads:     %s\n", viper.GetString("storage.blob_dir"))
	fmt.Fprintf(&sb, "  max upload:  %d bytes\n", viper.GetInt64("upload.max_bytes"))
	fmt.Fprintf(&sb, "  user:        %s\n\n", viper.GetString("user.id"))

	sb.WriteString("Server\n")
	fmt.Fprintf(&sb, "  listen:      %s:%d\n", viper.GetString("server.host"), viper.GetInt("server.port"))
	fmt.Fprintf(&sb, "  log:         %s (%s)\n", viper.GetString("log.level"), viper.GetString("log.format"))

	return sb.String()
}
