package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var apiVersionCmd = &cobra.Command{
	Use:   "api-version",
	Short: "Print the version reported by the platform API",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		version, err := client.APIVersion(cmdContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apiVersionCmd)
}
