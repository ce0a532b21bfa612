/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ssargent/recfile/pkg/codec"
)

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the recfile configuration
type Config struct {
	DataFile      string   `yaml:"data_file"`
	Columns       []Column `yaml:"columns"`
	Text          Text     `yaml:"text"`
	AtomicRewrite bool     `yaml:"atomic_rewrite"`
	Server        Server   `yaml:"server"`
	Logging       Logging  `yaml:"logging"`
}

// Column names one field of the record schema
type Column struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Text controls the on-disk text encoding
type Text struct {
	Length int  `yaml:"length"`
	Wide   bool `yaml:"wide"`
}

// Server contains API server configuration
type Server struct {
	Port       int    `yaml:"port"`
	Bind       string `yaml:"bind"`
	APIKey     string `yaml:"api_key"`
	RequestIDs bool   `yaml:"request_ids"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DefaultConfig returns a default configuration with the demo record schema
func DefaultConfig() *Config {
	return &Config{
		DataFile: "./data.dat",
		Columns: []Column{
			{Name: "name", Type: "text"},
			{Name: "age", Type: "int32"},
			{Name: "grade", Type: "float32"},
			{Name: "big_grade", Type: "float64"},
			{Name: "happy", Type: "bool"},
		},
		Text: Text{
			Length: codec.DefaultStringLength,
			Wide:   true,
		},
		Server: Server{
			Port: 8080,
			Bind: "127.0.0.1",
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from the specified path. Keys missing from
// the file keep their default values.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// may hold the API key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the schema, text format and server settings
func (c *Config) Validate() error {
	if c.DataFile == "" {
		return fmt.Errorf("%w: data_file is required", ErrInvalidConfig)
	}
	if _, err := c.Schema(); err != nil {
		return err
	}
	if err := c.TextFormat().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}

// Schema resolves the configured columns into named codec columns
func (c *Config) Schema() (codec.Columns, error) {
	if len(c.Columns) == 0 {
		return nil, fmt.Errorf("%w: at least one column is required", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Columns))
	cols := make(codec.Columns, 0, len(c.Columns))
	for i, col := range c.Columns {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrInvalidConfig, i)
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidConfig, col.Name)
		}
		seen[col.Name] = true

		t, err := codec.ParseFieldType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: column %q: %w", ErrInvalidConfig, col.Name, err)
		}
		cols = append(cols, codec.Column{Name: col.Name, Type: t})
	}
	return cols, nil
}

// TextFormat returns the codec text format for the configured settings
func (c *Config) TextFormat() codec.TextFormat {
	return codec.TextFormat{Length: c.Text.Length, Wide: c.Text.Wide}
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key
func BootstrapConfig(configPath string, dataFile string) (*Config, error) {
	config := DefaultConfig()
	if dataFile != "" {
		config.DataFile = dataFile
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./recfile.yaml"
	}

	// ~/.config/recfile/config.yaml on Linux and macOS
	return filepath.Join(homeDir, ".config", "recfile", "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
