package main

import (
	"os"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Sign in and print the identity",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sessions, err := newSessions()
		if err != nil {
			return err
		}
		guard := newWriteGuard(sessions, os.Stderr)
		defer guard.Close()

		identity, err := guard.Require(cmd.Context())
		if err != nil {
			return err
		}
		if humanOutput {
			outputHuman("%s (%s)\n", identity.Name(), identity.UserID)
			return nil
		}
		return outputJSON(identity)
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
