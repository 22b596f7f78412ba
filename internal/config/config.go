package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the YAML file and .env
const (
	EnvNickServPassword = "NICKGUARD_NICKSERV_PASSWORD"
	EnvServerPass       = "NICKGUARD_SERVER_PASS"
)

// Config holds all bot configuration
type Config struct {
	Nick       string `yaml:"nick"`
	Username   string `yaml:"username"`
	IRCName    string `yaml:"irc_name"`
	Server     string `yaml:"server"`
	Port       int    `yaml:"port"`
	ServerPass string `yaml:"server_pass"`
	UseTLS     bool   `yaml:"use_tls"`
	OperNick   string `yaml:"oper_nick"`
	OperPass   string `yaml:"oper_pass"`
	UserModes  string `yaml:"user_modes"`
	DataDir    string `yaml:"data_dir"`

	// MetricsAddr enables the Prometheus endpoint when set, e.g. ":9102"
	MetricsAddr string `yaml:"metrics_addr"`

	// NickServ is handed to nickserv.ParseOptions as-is
	NickServ map[string]any `yaml:"nickserv"`
}

// Load reads and parses a YAML configuration file. A .env file in the same
// directory is loaded first, if present.
func Load(path string) (*Config, error) {
	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies environment overrides and
// defaults, and validates required fields.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	// Set defaults
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.Port == 0 {
		cfg.Port = 6667
	}
	if cfg.Username == "" {
		cfg.Username = cfg.Nick
	}
	if cfg.IRCName == "" {
		cfg.IRCName = cfg.Nick
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvNickServPassword); v != "" {
		if c.NickServ == nil {
			c.NickServ = make(map[string]any)
		}
		c.NickServ["password"] = v
	}
	if v := os.Getenv(EnvServerPass); v != "" {
		c.ServerPass = v
	}
}

func (c *Config) validate() error {
	if c.Nick == "" {
		return errors.New("config: nick is required")
	}
	if c.Server == "" {
		return errors.New("config: server is required")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: port %d out of range", c.Port)
	}
	return nil
}

// Address returns host:port for dialing
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server, c.Port)
}
