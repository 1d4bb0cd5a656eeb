// The simbridge command runs demo simulations that exchange messages with
// the outside world through a messaging layer.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "simbridge",
	Short: "Simbridge connects push-based messaging topics to discrete-event simulations.",
	Long: `Simbridge connects push-based messaging topics to discrete-event ` +
		`simulations. The CLI currently provides a demo simulation (run) with a ` +
		`publisher bridge feeding a subscriber bridge over a topic.`,
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
