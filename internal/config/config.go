package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/teamsgraph/internal/auth"
)

// Config represents the application configuration
type Config struct {
	Graph struct {
		BaseURL           string  `koanf:"base_url"`
		MaxRetries        int     `koanf:"max_retries"`
		BackoffFactor     float64 `koanf:"backoff_factor"`
		RequestTimeout    int     `koanf:"request_timeout"` // seconds
		RequestsPerSecond float64 `koanf:"requests_per_second"`
	} `koanf:"graph"`

	Auth struct {
		Mode         string `koanf:"mode"`
		TenantID     string `koanf:"tenant_id"`
		ClientID     string `koanf:"client_id"`
		ClientSecret string `koanf:"client_secret"`
		RefreshToken string `koanf:"refresh_token"`
		RedirectURI  string `koanf:"redirect_uri"`
		AccessToken  string `koanf:"access_token"` // pre-acquired token, skips the OAuth flow
	} `koanf:"auth"`

	Notify struct {
		TeamID      string `koanf:"team_id"`
		ChannelID   string `koanf:"channel_id"`
		Timezone    string `koanf:"timezone"`
		MessageText string `koanf:"message_text"`
	} `koanf:"notify"`
}

// LoadConfig loads the configuration from a file, environment, and defaults
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"graph.max_retries":     3,
		"graph.backoff_factor":  0.5,
		"graph.request_timeout": 10,
		"auth.mode":             auth.ModeClientCredentials,
		"notify.timezone":       "Asia/Seoul",
		"notify.message_text":   "Good morning! This is your scheduled Teams reminder.",
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try to load from default locations
		defaultPaths := []string{"./teamsgraph.toml", "$HOME/.teamsgraph.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix TEAMSGRAPH_. A double
	// underscore separates the section from the key, so
	// TEAMSGRAPH_AUTH__TENANT_ID maps to auth.tenant_id.
	k.Load(env.Provider("TEAMSGRAPH_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "TEAMSGRAPH_"))
		return strings.Replace(s, "__", ".", 1)
	}), nil)

	// Unmarshal into Config struct
	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# teamsgraph configuration

[graph]
# base_url = "https://graph.microsoft.com/v1.0"
max_retries = 3
backoff_factor = 0.5
request_timeout = 10

[auth]
# mode is "client_credentials" or "refresh_token"
mode = "client_credentials"
tenant_id = "your-tenant-id"
client_id = "your-client-id"
client_secret = "your-client-secret"
# refresh_token = ""
# redirect_uri = ""
# access_token = "pre-acquired bearer token, skips the OAuth flow"

[notify]
team_id = "your-team-id"
channel_id = "your-channel-id"
timezone = "Asia/Seoul"
message_text = "Good morning! This is your scheduled Teams reminder."
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Credentials maps the auth section onto auth.Credentials.
func (c *Config) Credentials() auth.Credentials {
	return auth.Credentials{
		Mode:         c.Auth.Mode,
		TenantID:     c.Auth.TenantID,
		ClientID:     c.Auth.ClientID,
		ClientSecret: c.Auth.ClientSecret,
		RefreshToken: c.Auth.RefreshToken,
		RedirectURI:  c.Auth.RedirectURI,
	}
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.Graph.MaxRetries < 0 {
		return fmt.Errorf("graph max_retries must not be negative")
	}

	if config.Graph.RequestTimeout <= 0 {
		return fmt.Errorf("graph request_timeout must be positive")
	}

	// A pre-acquired access token stands in for the full credential set.
	if config.Auth.AccessToken != "" {
		return nil
	}

	if err := config.Credentials().Validate(); err != nil {
		return fmt.Errorf("invalid auth configuration: %w", err)
	}

	return nil
}
