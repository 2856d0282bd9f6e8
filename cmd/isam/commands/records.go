package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/ISAMStore/src/app"
)

func initRecords() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "insert <value>...",
		Short: "Inserts one record, one value per schema field",
		Args:  cobra.MinimumNArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, args []string) error {
			r, err := store.File.Codec().Parse(args)
			if err != nil {
				return err
			}
			if err := store.File.Insert(r); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "record inserted")
			return nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "search <key>",
		Short: "Prints the record with the key",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, args []string) error {
			key, err := app.ParseKey(args[0])
			if err != nil {
				return err
			}
			found, err := store.File.Search(key)
			if err != nil {
				return err
			}
			r, ok := found.Get()
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "record %d not found\n", key)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.Format(r))
			return nil
		}),
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "delete <key>",
		Short: "Removes the record with the key",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, args []string) error {
			key, err := app.ParseKey(args[0])
			if err != nil {
				return err
			}
			deleted, err := store.File.Delete(key)
			if err != nil {
				return err
			}
			r, ok := deleted.Get()
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "record %d not found\n", key)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", store.Format(r))
			return nil
		}),
	})
}
