/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/config"
	"github.com/ssargent/recfile/pkg/logging"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file and an empty data file",
	Long: `Create a configuration file with the demo schema and a generated API key,
then create the (empty) data file it points to.

Edit the columns in the generated file before writing any records: the
schema and text format are fixed for the lifetime of a data file.

Examples:
  recfile init
  recfile init --config ./recfile.yaml --file ./people.dat
  recfile init --config ./recfile.yaml --force --print-key`,
	// runs without an existing config
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataFile, _ := cmd.Flags().GetString("file")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cfg, err := config.BootstrapConfig(configPath, dataFile)
		if err != nil {
			return err
		}
		columns, err := cfg.Schema()
		if err != nil {
			return err
		}

		s := &settings{config: cfg, configPath: configPath, columns: columns}
		sc := storeConfig(s)
		sc.Logger = logging.Discard()

		if container == nil {
			return fmt.Errorf("dependency container not initialized")
		}
		rs, err := container.GetStoreFactory().OpenStore(sc, columns)
		if err != nil {
			return fmt.Errorf("failed to create data file: %w", err)
		}
		if err := rs.Close(); err != nil {
			return err
		}

		cmd.Printf("Configuration created at %s\n", configPath)
		cmd.Printf("Data file: %s (record size %d bytes)\n", cfg.DataFile, rs.RecordSize())
		if printKey {
			cmd.Printf("API key: %s\n", cfg.Server.APIKey)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}
