package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

var envKeyNames = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
}

// GetAPIKey retrieves the API key for the given provider, checking environment
// variables first and falling back to the config file.
func GetAPIKey(provider string) (string, error) {
	env, ok := envKeyNames[provider]
	if !ok {
		return "", fmt.Errorf("no API key management for provider %q", provider)
	}
	if key := os.Getenv(env); key != "" {
		return key, nil
	}
	if key := viper.GetString("api_keys." + provider); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%s not found; set it via environment variable or in %s", env, ConfigPath())
}
