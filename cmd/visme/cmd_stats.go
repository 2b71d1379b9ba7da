package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print microsaccade statistics of a trial file",
	Long: `Detect the microsaccades of a trial file and print the per-channel
statistics (counts, rates, amplitude, inter-saccadic interval, peak
velocity and direction) as JSON.

Examples:
  visme stats --trial trial.json
  visme stats --trial trial.json --profile lab-a --profiles profiles.yaml`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	override, err := profile()
	if err != nil {
		return err
	}

	// Statistics reuses the latest run, so detect with the profile first.
	if _, err := s.service.DetectMicrosaccades(ctx, s.trial.ID, override); err != nil {
		return err
	}
	stats, err := s.service.Statistics(ctx, s.trial.ID)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), stats)
}
