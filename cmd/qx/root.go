package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	ibmq "github.com/cbjuan/qiskit-ibmq-provider"
	"github.com/spf13/cobra"
)

type rootFlagValues struct {
	account string
	token   string
	url     string
	hub     string
	group   string
	project string
	timeout string
	retries int
	jsonOut bool
	debug   bool
}

var rootFlags rootFlagValues

var rootCmd = &cobra.Command{
	Use:          "qx",
	Short:        "IBM Q Experience command line client",
	Long:         "qx talks to the IBM Q Experience platform: inspect backends, submit qobjs and track jobs.",
	Version:      "0.1.0",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ibmq.SetDebug(rootFlags.debug)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.account, "account", "", "stored account to use")
	pf.StringVar(&rootFlags.token, "token", "", fmt.Sprintf("api token (overrides %s and stored accounts)", ibmq.EnvToken))
	pf.StringVar(&rootFlags.url, "url", "", fmt.Sprintf("api endpoint url (overrides %s)", ibmq.EnvURL))
	pf.StringVar(&rootFlags.hub, "hub", "", "IBM Q Network hub")
	pf.StringVar(&rootFlags.group, "group", "", "IBM Q Network group")
	pf.StringVar(&rootFlags.project, "project", "", "IBM Q Network project")
	pf.StringVar(&rootFlags.timeout, "timeout", "", "per request timeout, e.g. 30s")
	pf.IntVar(&rootFlags.retries, "retries", 0, "attempts per request before giving up")
	pf.BoolVar(&rootFlags.jsonOut, "json", false, "print raw JSON documents")
	pf.BoolVar(&rootFlags.debug, "debug", false, "enable debug logging")
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// resolveAccount layers command line flags over the environment over the
// stored account.
func resolveAccount() (ibmq.Account, error) {
	account, err := ibmq.ResolveAccount(rootFlags.account)
	if err != nil {
		// a token flag alone is a complete account
		if rootFlags.token == "" {
			return ibmq.Account{}, err
		}
		account = ibmq.Account{}
	}

	if rootFlags.token != "" {
		account.Token = rootFlags.token
	}
	if rootFlags.url != "" {
		account.URL = rootFlags.url
	}
	if rootFlags.hub != "" {
		account.Hub = rootFlags.hub
	}
	if rootFlags.group != "" {
		account.Group = rootFlags.group
	}
	if rootFlags.project != "" {
		account.Project = rootFlags.project
	}
	return account, nil
}

func dialOptions(account ibmq.Account) ([]ibmq.DialOption, error) {
	opts := append(account.DialOptions(), ibmq.WithClientApplication("qx-cli"))
	if rootFlags.timeout != "" {
		d, err := time.ParseDuration(rootFlags.timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout: %w", err)
		}
		opts = append(opts, ibmq.WithTimeout(d))
	}
	if rootFlags.retries > 0 {
		opts = append(opts, ibmq.WithRetries(rootFlags.retries))
	}
	return opts, nil
}

func newClient(cmd *cobra.Command) (*ibmq.Client, error) {
	account, err := resolveAccount()
	if err != nil {
		return nil, err
	}

	opts, err := dialOptions(account)
	if err != nil {
		return nil, err
	}

	conn, err := ibmq.Dial(opts...)
	if err != nil {
		return nil, err
	}
	return ibmq.NewClient(conn, account.ClientOptions()...), nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
