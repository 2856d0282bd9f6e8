package commands

import (
	"github.com/spf13/cobra"

	"github.com/Blackdeer1524/ISAMStore/src/app"
)

func initShell() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "shell",
		Short: "Starts the interactive menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), &app.ShellEntrypoint{
				EnvPath: rootCmd.Options.ConfigPath,
				In:      cmd.InOrStdin(),
				Out:     cmd.OutOrStdout(),
			})
		},
	})
}
