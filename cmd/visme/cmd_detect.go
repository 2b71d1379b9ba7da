package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"visme-go/internal/models"
)

var detectKind string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect microsaccades or regular saccades in a trial file",
	Long: `Detect microsaccades (attached to the trial's fixations) or regular
saccades in a trial file and print the result as JSON.

Examples:
  visme detect --trial trial.json
  visme detect --trial trial.json --kind saccades
  visme detect --trial trial.json --profile lab-a --profiles profiles.yaml`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().StringVar(&detectKind, "kind", string(models.KindMicrosaccades), "Detection kind (microsaccades|saccades)")
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := newSession(ctx)
	if err != nil {
		return err
	}
	override, err := profile()
	if err != nil {
		return err
	}

	var res *models.DetectionResult
	switch models.DetectionKind(detectKind) {
	case models.KindMicrosaccades:
		res, err = s.service.DetectMicrosaccades(ctx, s.trial.ID, override)
	case models.KindSaccades:
		res, err = s.service.DetectRegularSaccades(ctx, s.trial.ID, override)
	default:
		return fmt.Errorf("unknown detection kind %q", detectKind)
	}
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), res)
}
