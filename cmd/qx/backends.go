package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var backendsFlags struct {
	simsOnly bool
}

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the backends available to run on",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		backends, err := client.AvailableBackends(cmdContext(cmd))
		if err != nil {
			return err
		}

		if backendsFlags.simsOnly {
			sims := backends.Sims()
			if rootFlags.jsonOut {
				return printJSON(cmd, sims)
			}
			for _, b := range sims {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d qubits\tsimulator\n", b.Name, b.NQubits)
			}
			return nil
		}

		if rootFlags.jsonOut {
			return printJSON(cmd, backends)
		}

		names := make([]string, 0, len(backends))
		for name := range backends {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			b := backends[name]
			kind := "device"
			if b.Simulator {
				kind = "simulator"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d qubits\t%s\n", b.Name, b.NQubits, kind)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <backend>",
	Short: "Show the queue status of a backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		status, err := client.BackendStatus(cmdContext(cmd), args[0])
		if err != nil {
			return err
		}
		if rootFlags.jsonOut {
			return printJSON(cmd, status)
		}

		state := "not operational"
		if status.Operational {
			state = "operational"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %s, %d pending jobs, %s\n",
			status.Backend, status.Version, state, status.PendingJobs, status.StatusMsg)
		return nil
	},
}

var propsCmd = &cobra.Command{
	Use:   "props <backend>",
	Short: "Show the measured properties of a backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		props, err := client.BackendProperties(cmdContext(cmd), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, props)
	},
}

func init() {
	backendsCmd.Flags().BoolVar(&backendsFlags.simsOnly, "sims", false, "only list simulators")

	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(propsCmd)
}
