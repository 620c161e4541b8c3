package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	centralConfigPath = "central.yaml"
	nodeConfigPath    = "node.yaml"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "strand",
	Short: "Strand serial-link networking CLI",
	Long: `Strand is a from-scratch network stack for point-to-point links.
Each node discovers its neighbours, converges on shortest paths with
distance-vector routing, and carries application messages reliably across
multiple hops.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&nodeConfigPath, "node-config", "n", nodeConfigPath, "node-specific config")
	rootCmd.PersistentFlags().StringVarP(&centralConfigPath, "central-config", "c", centralConfigPath, "network-global config")
}
