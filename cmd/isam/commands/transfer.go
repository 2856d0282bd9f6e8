package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/ISAMStore/src/app"
)

func initTransfer() {
	var reorganize bool
	load := &cobra.Command{
		Use:   "load <csv>",
		Short: "Inserts every row of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, args []string) error {
			n, err := store.LoadCSV(args[0], reorganize)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d records\n", n)
			return nil
		}),
	}
	load.Flags().BoolVar(&reorganize, "reorganize", true, "Reorganize the data file after loading")
	rootCmd.AddCommand(load)

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Writes every record as JSON lines",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, store *app.Store, _ []string) (err error) {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, createErr := store.Fs.Create(output)
				if createErr != nil {
					return createErr
				}
				defer func() {
					err = errors.Join(err, file.Close())
				}()
				w = file
			}

			n, err := store.Export(w)
			if err != nil {
				return err
			}
			store.Log.Infow("exported records", "records", n, "output", output)
			return nil
		}),
	}
	export.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(export)
}
