package main

import "github.com/spf13/cobra"

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Run the orchestrator, a worker and the storage finalizer in one process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServices(cmd, jobsService, workerService, storageService)
	},
}
