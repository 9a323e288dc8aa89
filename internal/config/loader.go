package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load loads and validates configuration from:
// 1. Default values
// 2. The config file at configPath (optional)
// 3. Environment variables
//
// Credential checks and the certificate file check run before anything
// touches the network, so a misconfigured process never starts.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Credentials are environment-only
	bindings := map[string]string{
		"telegram.token":         EnvTelegramToken,
		"bigachat.client_id":     EnvClientID,
		"bigachat.client_secret": EnvClientSecret,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("%w: failed to bind %s: %v", ErrConfiguration, env, err)
		}
	}

	// Config file is optional; defaults cover everything but credentials
	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := checkRequiredEnv(cfg); err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.BigAChat.CertFile); err != nil {
		return nil, fmt.Errorf("%w: certificate bundle %s is not readable: %v", ErrConfiguration, cfg.BigAChat.CertFile, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// checkRequiredEnv reports every missing required environment variable
// by name in a single error.
func checkRequiredEnv(cfg *Config) error {
	var missing []string

	if cfg.Telegram.Token == "" {
		missing = append(missing, EnvTelegramToken)
	}
	if cfg.BigAChat.ClientID == "" {
		missing = append(missing, EnvClientID)
	}
	if cfg.BigAChat.ClientSecret == "" {
		missing = append(missing, EnvClientSecret)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required environment variables: %s", ErrConfiguration, strings.Join(missing, ", "))
	}

	return nil
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults(v *viper.Viper) {
	v.SetDefault("bigachat.oauth_url", "https://auth.bigachat.dev/oauth/token")
	v.SetDefault("bigachat.chat_url", "https://api.bigachat.dev/v1/chat/completions")
	v.SetDefault("bigachat.scope", "BIGACHAT_API_PERS")
	v.SetDefault("bigachat.model", "BigAChat")
	v.SetDefault("bigachat.temperature", 0.7)
	v.SetDefault("bigachat.max_tokens", 1000)
	v.SetDefault("bigachat.cert_file", "bigachat_ca.pem")
	v.SetDefault("bigachat.timeout", 30*time.Second)
	v.SetDefault("bigachat.retry_attempts", 3)
	v.SetDefault("bigachat.retry_delay", 500*time.Millisecond)
	v.SetDefault("bigachat.auth_header_encoding", "raw")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.json", true)

	v.SetDefault("messages.welcome", "👋 Hi! Send me any message and I'll ask BigAChat for you.")
	v.SetDefault("messages.help", "Commands:\n/start - start the conversation\n/help - show this message\n\nAny other text is forwarded to BigAChat.")
	v.SetDefault("messages.general_error", "😔 Sorry, something went wrong. Please try again later.")
	v.SetDefault("messages.critical_error", "❌ A critical error occurred. Please try again later.")
}
