package main

import (
	"fmt"

	"github.com/mostlydev/javabatch/internal/doctor"
	"github.com/spf13/cobra"
)

var (
	doctorLocal bool
	doctorG3    bool
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that artman and, in docker mode, the Docker daemon are available",
	RunE: func(cmd *cobra.Command, args []string) error {
		tool := toolName(defaults.Tool, doctorG3)
		results := doctor.RunAll(cmd.Context(), tool, !doctorLocal)
		allOK := true

		out := cmd.OutOrStdout()
		for _, result := range results {
			status := "OK"
			if !result.OK {
				status = "FAIL"
				allOK = false
			}

			if result.Version != "" {
				fmt.Fprintf(out, "%-10s %-4s %s\n", result.Name, status, result.Version)
			} else {
				fmt.Fprintf(out, "%-10s %-4s %s\n", result.Name, status, result.Detail)
			}
		}

		if !allOK {
			return fmt.Errorf("one or more checks failed")
		}

		return nil
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorLocal, "local-mode", false, "Skip the Docker check")
	doctorCmd.Flags().BoolVar(&doctorG3, "g3artman", false, "Check g3artman instead of artman")
	rootCmd.AddCommand(doctorCmd)
}
