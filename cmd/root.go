package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "img-proof",
	Short: "Provision cloud instances for image validation runs",
	Long: `img-proof provisions a compute instance of a given image in the cloud,
together with the minimal network path needed to reach it, and tears
everything down again when the validation run is over.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It only needs to happen once.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
