package commands

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/ISAMStore/src/app"
	"github.com/Blackdeer1524/ISAMStore/src/cli"
)

var rootCmd = cli.Init("isam", "Indexed sequential file of fixed-width records")

var registerOnce sync.Once

func register() {
	registerOnce.Do(func() {
		initRecords()
		initMaintenance()
		initTransfer()
		initShell()
	})
}

func MustExecute(ctx context.Context) {
	register()
	rootCmd.MustExecute(ctx)
}

// withStore opens the configured store for one command and closes it
// afterwards.
func withStore(run func(cmd *cobra.Command, store *app.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		store, err := app.OpenStore(rootCmd.Options.ConfigPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := store.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()

		return run(cmd, store, args)
	}
}
