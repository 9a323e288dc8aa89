// Package config manages application configuration from environment
// variables, an optional config.yaml file, and default values.
package config

import (
	"errors"
	"time"
)

// Required environment variables. Missing any of them is a fatal
// startup error naming the missing ones.
const (
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvClientID      = "BIGACHAT_CLIENT_ID"
	EnvClientSecret  = "BIGACHAT_CLIENT_SECRET"
)

// ErrConfiguration wraps all configuration loading and validation failures.
var ErrConfiguration = errors.New("configuration error")

// Config defines the application configuration. Credentials come from the
// environment; everything else can be overridden through config.yaml.
type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	BigAChat BigAChatConfig `mapstructure:"bigachat"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Messages MessagesConfig `mapstructure:"messages"`
}

// TelegramConfig holds the chat-platform settings.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
}

// BigAChatConfig holds the BigAChat API client settings.
type BigAChatConfig struct {
	ClientID     string `mapstructure:"client_id"     validate:"required"`
	ClientSecret string `mapstructure:"client_secret" validate:"required"`

	OAuthURL string `mapstructure:"oauth_url" validate:"required,url"`
	ChatURL  string `mapstructure:"chat_url"  validate:"required,url"`
	Scope    string `mapstructure:"scope"     validate:"required"`

	Model       string  `mapstructure:"model"       validate:"required"`
	Temperature float32 `mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `mapstructure:"max_tokens"  validate:"min=1"`

	// CertFile is the PEM certificate bundle the HTTPS transport trusts.
	// The file must exist before the bot starts.
	CertFile string `mapstructure:"cert_file" validate:"required"`

	Timeout       time.Duration `mapstructure:"timeout"        validate:"min=1s,max=10m"`
	RetryAttempts uint          `mapstructure:"retry_attempts" validate:"min=1"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"    validate:"min=1ms"`

	// AuthHeaderEncoding selects how the OAuth Basic credential pair is
	// written: "raw" joins client_id and client_secret with a literal
	// colon, "base64" uses standard Basic-auth encoding.
	AuthHeaderEncoding string `mapstructure:"auth_header_encoding" validate:"oneof=raw base64"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// MessagesConfig holds the fixed user-facing message texts.
type MessagesConfig struct {
	Welcome       string `mapstructure:"welcome"        validate:"required"`
	Help          string `mapstructure:"help"           validate:"required"`
	GeneralError  string `mapstructure:"general_error"  validate:"required"`
	CriticalError string `mapstructure:"critical_error" validate:"required"`
}
