package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPacksFile is used when neither a flag, PACKGENIE_FILE nor the
// config file names a catalogue.
const DefaultPacksFile = "packs.json"

// Config represents the CLI configuration
type Config struct {
	DefaultFile   string                  `yaml:"default_file"`
	DefaultServer string                  `yaml:"default_server"`
	Servers       map[string]ServerConfig `yaml:"servers"`
}

// ServerConfig points the remote commands at a running pack server.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".packgenie", "config.yaml"), nil
}

// LoadConfig loads the configuration from file
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty config if file doesn't exist
			return &Config{
				DefaultFile: DefaultPacksFile,
				Servers:     make(map[string]ServerConfig),
			}, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if cfg.Servers == nil {
		cfg.Servers = make(map[string]ServerConfig)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to file
func SaveConfig(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// api keys live here
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ResolvePacksFile picks the catalogue file.
// Priority: --file flag > PACKGENIE_FILE > config default_file > packs.json
func ResolvePacksFile(fileFlag string) (string, error) {
	if fileFlag != "" {
		return fileFlag, nil
	}
	if env := os.Getenv("PACKGENIE_FILE"); env != "" {
		return env, nil
	}
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}
	if cfg.DefaultFile != "" {
		return cfg.DefaultFile, nil
	}
	return DefaultPacksFile, nil
}

// GetServerConfig returns the connection settings for a named server.
// Priority: command flags > environment variables > config file
// Returns the server config and the effective server name
func GetServerConfig(name, baseURLFlag, apiKeyFlag string) (*ServerConfig, string, error) {
	if baseURLFlag != "" && apiKeyFlag != "" {
		return &ServerConfig{BaseURL: baseURLFlag, APIKey: apiKeyFlag}, name, nil
	}

	envBaseURL := os.Getenv("PACKGENIE_BASE_URL")
	envAPIKey := os.Getenv("PACKGENIE_API_KEY")
	if envBaseURL != "" && envAPIKey != "" && name == "" {
		return &ServerConfig{BaseURL: envBaseURL, APIKey: envAPIKey}, name, nil
	}

	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}

	if name == "" {
		name = cfg.DefaultServer
	}
	if name == "" {
		return nil, "", fmt.Errorf("no server given: use --server, --base-url/--api-key or set default_server")
	}

	srv, ok := cfg.Servers[name]
	if !ok {
		return nil, "", fmt.Errorf("server '%s' not found in config", name)
	}

	// Override with flags/env vars if provided
	if baseURLFlag != "" {
		srv.BaseURL = baseURLFlag
	} else if envBaseURL != "" {
		srv.BaseURL = envBaseURL
	}
	if apiKeyFlag != "" {
		srv.APIKey = apiKeyFlag
	} else if envAPIKey != "" {
		srv.APIKey = envAPIKey
	}

	if srv.BaseURL == "" {
		return nil, "", fmt.Errorf("base_url must be configured for server '%s'", name)
	}

	return &srv, name, nil
}

// InitConfig creates a default config file
func InitConfig() error {
	cfg := &Config{
		DefaultFile:   DefaultPacksFile,
		DefaultServer: "local",
		Servers: map[string]ServerConfig{
			"local": {
				BaseURL: "http://localhost:8080",
				APIKey:  "admin-123",
			},
		},
	}

	return SaveConfig(cfg)
}
