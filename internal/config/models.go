package config

import "time"

// AppConfig is the persisted global configuration in ~/.ga4cli/config.yaml.
type AppConfig struct {
	ClientID          string    `json:"client_id" yaml:"client_id"`
	ClientSecret      string    `json:"client_secret" yaml:"client_secret"`
	ActivePreset      string    `json:"active_preset,omitempty" yaml:"active_preset,omitempty"`
	DefaultProperty   string    `json:"default_property,omitempty" yaml:"default_property,omitempty"` // e.g. "properties/263883430"
	OutputFormat      string    `json:"output_format,omitempty" yaml:"output_format,omitempty"`       // table, csv or json
	RequestsPerSecond float64   `json:"requests_per_second,omitempty" yaml:"requests_per_second,omitempty"`
	CreatedAt         time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" yaml:"updated_at"`
}

// Preset is a saved set of user credentials, stored one per file under ~/.ga4cli/presets.
type Preset struct {
	Name            string    `json:"name" yaml:"name"`
	RefreshToken    string    `json:"refresh_token" yaml:"refresh_token"`
	UserEmail       string    `json:"user_email,omitempty" yaml:"user_email,omitempty"`
	DefaultProperty string    `json:"default_property,omitempty" yaml:"default_property,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"created_at"`
	LastUsed        time.Time `json:"last_used" yaml:"last_used"`
}

// EnvOverrides are read from the environment (and an optional .env file) and
// take precedence over the config file.
type EnvOverrides struct {
	ClientID          string  `env:"GA4CLI_CLIENT_ID"`
	ClientSecret      string  `env:"GA4CLI_CLIENT_SECRET"`
	Property          string  `env:"GA4CLI_PROPERTY"`
	Preset            string  `env:"GA4CLI_PRESET"`
	RequestsPerSecond float64 `env:"GA4CLI_REQUESTS_PER_SECOND"`
	// Bypasses the refresh-token flow entirely when set.
	AccessToken string `env:"GA4CLI_ACCESS_TOKEN"`
	// Endpoint overrides, for proxies and local test servers.
	DataAPIURL       string `env:"GA4CLI_DATA_API_URL"`
	DataAPIAlphaURL  string `env:"GA4CLI_DATA_API_ALPHA_URL"`
	AdminAPIURL      string `env:"GA4CLI_ADMIN_API_URL"`
	AdminAPIAlphaURL string `env:"GA4CLI_ADMIN_API_ALPHA_URL"`
}

// Settings is the effective configuration for one invocation.
type Settings struct {
	AppConfig
	AccessToken      string
	DataAPIURL       string
	DataAPIAlphaURL  string
	AdminAPIURL      string
	AdminAPIAlphaURL string
}
