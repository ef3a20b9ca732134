// Command scrolldown serves moment-relative play-by-play timelines.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "scrolldown",
	Short:         "Moment-relative play-by-play service",
	Long:          "Scrolldown fetches a game moment's play-by-play, keeps the events up to the moment and orders them by elapsed game time.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file (overrides SCROLLDOWN_CONFIG)")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			return os.Setenv("SCROLLDOWN_CONFIG", path)
		}
		return nil
	}
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
