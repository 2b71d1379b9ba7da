package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configRoot   string
	trialFile    string
	profileName  string
	profilesFile string
	verbose      bool
)

// rootCmd is the base command of the visme command line tool.
var rootCmd = &cobra.Command{
	Use:   "visme",
	Short: "Microsaccade and saccade detection for eye tracking trials",
	Long: `visme detects microsaccades and regular saccades in eye tracking trials
with the Engbert-Kliegl velocity method and reports per-channel statistics.
It works on trial files directly; no database or cache is needed.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configRoot, "config-root", ".", "Directory containing config/config.yaml")
	rootCmd.PersistentFlags().StringVar(&trialFile, "trial", "", "Trial JSON file")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Named filter profile to use")
	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles", "", "Filter profiles YAML file (default: detection.profiles_file)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log to stderr")
	_ = rootCmd.MarkPersistentFlagRequired("trial")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
