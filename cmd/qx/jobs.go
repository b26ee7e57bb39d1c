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

var submitFlags struct {
	file    string
	backend string
	shots   int
	wait    bool
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a Qobj file for execution",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(submitFlags.file)
		if err != nil {
			return err
		}
		var qobj ibmq.Qobj
		if err := json.Unmarshal(data, &qobj); err != nil {
			return fmt.Errorf("could not parse %s: %w", submitFlags.file, err)
		}
		if submitFlags.shots > 0 {
			qobj.Config.Shots = submitFlags.shots
		}

		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		var opts []ibmq.ClientOption
		if submitFlags.backend != "" {
			opts = append(opts, ibmq.WithBackend(submitFlags.backend))
		}
		job, err := client.RunJob(cmdContext(cmd), &qobj, opts...)
		if err != nil {
			return err
		}
		if submitFlags.wait {
			job, err = client.WaitForJob(cmdContext(cmd), job.Id, 0)
			if err != nil {
				return err
			}
		}
		if rootFlags.jsonOut {
			return printJSON(cmd, job)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", job.Id, job.Status)
		return nil
	},
}

var jobFlags struct {
	exclude []string
	include []string
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Fetch a job document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		var filters []ibmq.FieldFilter
		if len(jobFlags.exclude) > 0 {
			filters = append(filters, ibmq.ExcludeFields(jobFlags.exclude...))
		}
		if len(jobFlags.include) > 0 {
			filters = append(filters, ibmq.IncludeFields(jobFlags.include...))
		}
		job, err := client.GetJob(cmdContext(cmd), args[0], filters...)
		if err != nil {
			return err
		}
		return printJSON(cmd, job)
	},
}

var jobsFlags struct {
	limit     int
	skip      int
	backend   string
	completed bool
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List submitted jobs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		jobs, err := client.GetStatusJobs(cmdContext(cmd), ibmq.JobsFilter{
			Limit:         jobsFlags.limit,
			Skip:          jobsFlags.skip,
			Backend:       jobsFlags.backend,
			OnlyCompleted: jobsFlags.completed,
		})
		if err != nil {
			return err
		}
		if rootFlags.jsonOut {
			return printJSON(cmd, jobs)
		}

		for _, job := range jobs {
			backend := ""
			if job.Backend != nil {
				backend = job.Backend.Name
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", job.Id, job.Status, backend, job.CreationDate)
		}
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <id>",
	Short: "Cancel a queued or running job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		if err := client.CancelJob(cmdContext(cmd), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "job cancelled")
		return nil
	},
}

var waitFlags struct {
	interval time.Duration
	timeout  time.Duration
}

var waitCmd = &cobra.Command{
	Use:   "wait <id>",
	Short: "Wait for a job to reach a terminal state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cmd)
		if err != nil {
			return err
		}

		ctx := cmdContext(cmd)
		if waitFlags.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, waitFlags.timeout)
			defer cancel()
		}

		job, err := client.WaitForJob(ctx, args[0], waitFlags.interval)
		if err != nil {
			return err
		}
		if rootFlags.jsonOut {
			return printJSON(cmd, job)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", job.Id, job.Status)
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitFlags.file, "file", "", "path to a Qobj JSON file")
	submitCmd.Flags().StringVar(&submitFlags.backend, "backend", "", "backend to run on")
	submitCmd.Flags().IntVar(&submitFlags.shots, "shots", 0, "override the number of shots")
	submitCmd.Flags().BoolVar(&submitFlags.wait, "wait", false, "wait for the job to finish")
	submitCmd.MarkFlagRequired("file")

	jobCmd.Flags().StringSliceVar(&jobFlags.exclude, "exclude", nil, "job document fields to leave out")
	jobCmd.Flags().StringSliceVar(&jobFlags.include, "include", nil, "job document fields to keep")

	jobsCmd.Flags().IntVar(&jobsFlags.limit, "limit", 0, "maximum number of jobs to list")
	jobsCmd.Flags().IntVar(&jobsFlags.skip, "skip", 0, "jobs to skip, for paging")
	jobsCmd.Flags().StringVar(&jobsFlags.backend, "backend", "", "only list jobs ran on this backend")
	jobsCmd.Flags().BoolVar(&jobsFlags.completed, "completed", false, "only list completed jobs")

	waitCmd.Flags().DurationVar(&waitFlags.interval, "interval", 0, "pause between status polls")
	waitCmd.Flags().DurationVar(&waitFlags.timeout, "timeout", 0, "give up after this long")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(jobCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(waitCmd)
}
