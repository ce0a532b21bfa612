/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/config"
	"github.com/ssargent/recfile/pkg/di"
	"github.com/ssargent/recfile/pkg/logging"
	"github.com/ssargent/recfile/pkg/store"
)

var container *di.Container

// SetContainer injects the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

type contextKey struct{}

// settings is the resolved configuration shared by all commands
type settings struct {
	config     *config.Config
	configPath string
	columns    codec.Columns
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recfile",
	Short: "recfile - fixed-width binary record files",
	Long: `recfile stores records of a fixed schema in a single flat binary file.
Every record has the same byte width, so records are addressed by index.

The schema, text format and data file come from a YAML config file
(see 'recfile init'); --file overrides the data file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataFile, _ := cmd.Flags().GetString("file")
		logLevel, _ := cmd.Flags().GetString("log-level")

		cfg, path, err := loadSettings(configPath)
		if err != nil {
			return err
		}
		if dataFile != "" {
			cfg.DataFile = dataFile
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}

		if err := logging.Init(logging.Config{
			Level:      logging.LogLevel(cfg.Logging.Level),
			Format:     cfg.Logging.Format,
			OutputPath: cfg.Logging.File,
			Writer:     cmd.ErrOrStderr(),
		}); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		columns, err := cfg.Schema()
		if err != nil {
			return err
		}

		s := &settings{config: cfg, configPath: path, columns: columns}
		cmd.SetContext(context.WithValue(cmd.Context(), contextKey{}, s))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Close()
	},
}

// loadSettings reads the config at path, falling back to the default
// location and then to built-in defaults. An explicit path must exist.
func loadSettings(path string) (*config.Config, string, error) {
	if path != "" {
		cfg, err := config.LoadConfig(path)
		return cfg, path, err
	}

	path = config.GetDefaultConfigPath()
	if config.ConfigExists(path) {
		cfg, err := config.LoadConfig(path)
		return cfg, path, err
	}
	return config.DefaultConfig(), path, nil
}

func settingsFrom(cmd *cobra.Command) (*settings, error) {
	s, ok := cmd.Context().Value(contextKey{}).(*settings)
	if !ok {
		return nil, errors.New("configuration not loaded")
	}
	return s, nil
}

func storeConfig(s *settings) store.Config {
	return store.Config{
		FilePath:      s.config.DataFile,
		Text:          s.config.TextFormat(),
		AtomicRewrite: s.config.AtomicRewrite,
		Logger:        logging.WithComponent("store"),
	}
}

// withStore opens the configured data file, runs fn and closes the file
func withStore(cmd *cobra.Command, fn func(s *settings, rs *store.RecordStore[codec.Row]) error) (err error) {
	s, err := settingsFrom(cmd)
	if err != nil {
		return err
	}
	if container == nil {
		return errors.New("dependency container not initialized")
	}

	rs, err := container.GetStoreFactory().OpenStore(storeConfig(s), s.columns)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", s.config.DataFile, err)
	}
	defer func() {
		if closeErr := rs.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return fn(s, rs)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("file", "f", "", "Data file, overriding the config")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}
