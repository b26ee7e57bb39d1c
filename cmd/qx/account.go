package main

import (
	"errors"
	"fmt"
	"sort"

	ibmq "github.com/cbjuan/qiskit-ibmq-provider"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify credentials against the platform and store them",
	RunE: func(cmd *cobra.Command, args []string) error {
		account, err := resolveAccount()
		if err != nil {
			return err
		}
		if account.Token == "" {
			return errors.New("provide an api token via --token or " + ibmq.EnvToken)
		}

		opts, err := dialOptions(account)
		if err != nil {
			return err
		}
		conn, err := ibmq.Dial(opts...)
		if err != nil {
			return err
		}

		if err := ibmq.SaveAccount(rootFlags.account, account); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s\n", conn.UserID())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget a stored account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ibmq.DeleteAccount(rootFlags.account); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "account removed")
		return nil
	},
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List stored accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		accounts, err := ibmq.Accounts()
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no accounts stored")
			return nil
		}

		names := make([]string, 0, len(accounts))
		for name := range accounts {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			account := accounts[name]
			fmt.Fprintf(cmd.OutOrStdout(), "%s\ttoken=%s", name, maskToken(account.Token))
			if account.URL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\turl=%s", account.URL)
			}
			if account.Hub != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\thub=%s/%s/%s", account.Hub, account.Group, account.Project)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	},
}

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Show the remaining execution credits",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		credit, err := client.GetMyCredits(cmdContext(cmd))
		if err != nil {
			return err
		}
		if rootFlags.jsonOut {
			return printJSON(cmd, credit)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "remaining: %.0f (promotional: %.0f, max: %.0f)\n",
			credit.Remaining, credit.Promotional, credit.MaxUserType)
		return nil
	},
}

func maskToken(token string) string {
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(creditsCmd)
}
