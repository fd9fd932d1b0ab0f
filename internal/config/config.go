package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Azure   Azure   `yaml:"azure"`
	Pexels  Pexels  `yaml:"pexels"`
	Dalle   Dalle   `yaml:"dalle"`
	Storage Storage `yaml:"storage"`
	Quiz    Quiz    `yaml:"quiz"`
	Output  Output  `yaml:"output"`
	Server  Server  `yaml:"server"`
	Logging Logging `yaml:"logging"`
}

// Azure configures the chat/vision deployment. API keys are referenced
// by environment variable name and read at startup, never stored here.
type Azure struct {
	Endpoint     string `yaml:"endpoint"`
	Deployment   string `yaml:"deployment"`
	APIVersion   string `yaml:"api_version"`
	APIKeyEnv    string `yaml:"api_key_env"`
	OpenAIModel  string `yaml:"openai_model"`
	OpenAIKeyEnv string `yaml:"openai_key_env"`
}

type Pexels struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

type Dalle struct {
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
	Size      string `yaml:"size"`
}

type Storage struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CDNDomain       string `yaml:"cdn_domain"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Quiz holds the generation parameters that vary between deployments.
type Quiz struct {
	Questions     int    `yaml:"questions"`      // 4 or 5
	ImageStrategy string `yaml:"image_strategy"` // "search" or "generate"
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for storygen.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "storygen")
}

// DataDir returns the XDG data directory for storygen.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "storygen")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/storygen/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'storygen init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Azure: Azure{
			APIVersion:   "2024-02-01",
			APIKeyEnv:    "AZURE_API_KEY",
			OpenAIModel:  "gpt-4o-mini",
			OpenAIKeyEnv: "OPENAI_API_KEY",
		},
		Pexels: Pexels{APIKeyEnv: "PEXELS_API_KEY"},
		Dalle: Dalle{
			APIKeyEnv: "DALLE_API_KEY",
			Size:      "1024x1024",
		},
		Storage: Storage{
			Prefix:    "suvichaarstories",
			CDNDomain: "cdn.suvichaar.org",
		},
		Quiz: Quiz{
			Questions:     5,
			ImageStrategy: "search",
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Quiz.Questions != 4 && cfg.Quiz.Questions != 5 {
		return nil, fmt.Errorf("quiz.questions must be 4 or 5, got %d", cfg.Quiz.Questions)
	}
	if s := cfg.Quiz.ImageStrategy; s != "search" && s != "generate" {
		return nil, fmt.Errorf("quiz.image_strategy must be 'search' or 'generate', got %q", s)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
