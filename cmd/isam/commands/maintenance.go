package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/ISAMStore/src/app"
)

func initMaintenance() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "scan",
		Short: "Prints every page of the data file",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, _ []string) error {
			return store.PrintPages(cmd.OutOrStdout())
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "reorganize",
		Short: "Rewrites the data file as full pages in key order",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, _ []string) error {
			if err := store.File.Reorganize(); err != nil {
				return err
			}
			store.PrintStats(cmd.OutOrStdout())
			return nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "rebuild",
		Short: "Rebuilds the index from the data file",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, _ []string) error {
			if err := store.File.Rebuild(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "index rebuilt: %d entries\n", len(store.File.IndexEntries()))
			return nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Prints the record schema as YAML",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, _ []string) error {
			return store.PrintSchema(cmd.OutOrStdout())
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Prints page and index counters",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, _ []string) error {
			store.PrintStats(cmd.OutOrStdout())
			return nil
		}),
	})
}
