/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/recfile/pkg/codec"
	"github.com/ssargent/recfile/pkg/store"
)

// swapCmd represents the swap command
var swapCmd = &cobra.Command{
	Use:   "swap <a> <b>",
	Short: "Exchange two records",
	Long: `Exchange the records at two indexes.

Example:
  recfile swap 0 5`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		b, err := parseIndex(args[1])
		if err != nil {
			return err
		}

		return withStore(cmd, func(s *settings, rs *store.RecordStore[codec.Row]) error {
			if err := rs.Swap(a, b); err != nil {
				return err
			}

			cmd.Printf("Records %d and %d swapped\n", a, b)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(swapCmd)
}
