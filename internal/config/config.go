package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	// Global settings
	Format  string `mapstructure:"format"`
	Verbose bool   `mapstructure:"verbose"`

	// Bridge settings
	Bridge BridgeConfig `mapstructure:"bridge"`

	// Rules file location
	RulesFile string `mapstructure:"rules_file"`
}

// BridgeConfig holds transport settings shared by forwarder and server.
type BridgeConfig struct {
	// Socket overrides the derived socket path.
	Socket string `mapstructure:"socket"`
	// ProjectDir is the directory the socket path is derived from.
	ProjectDir string `mapstructure:"project_dir"`
	// Timeout bounds the forwarder round trip, e.g. "400ms".
	Timeout string `mapstructure:"timeout"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Format:  "auto",
		Verbose: false,
		Bridge: BridgeConfig{
			Timeout: "400ms",
		},
	}
}

// Load loads configuration from files and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("hookd")
	v.SetConfigType("yaml")

	// Config paths, lowest precedence first
	v.AddConfigPath("/etc/hookd/")
	if configDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(configDir, "hookd"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home)
		v.SetConfigName(".hookd")
	}
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("HOOKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.BindEnv("format", "HOOKD_FORMAT")
	v.BindEnv("verbose", "HOOKD_VERBOSE")
	v.BindEnv("rules_file", "HOOKD_RULES_FILE")
	v.BindEnv("bridge.socket", "HOOKD_SOCKET")
	v.BindEnv("bridge.project_dir", "HOOKD_PROJECT_DIR")
	v.BindEnv("bridge.timeout", "HOOKD_TIMEOUT")

	cfg := Default()
	v.SetDefault("format", cfg.Format)
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("bridge.timeout", cfg.Bridge.Timeout)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// Config file not found; use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific file.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultRulesFile resolves the rules file path: the configured one, or
// ~/.hookd/rules.yaml.
func (c *Config) DefaultRulesFile() string {
	if c.RulesFile != "" {
		return c.RulesFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "rules.yaml"
	}
	return filepath.Join(home, ".hookd", "rules.yaml")
}
