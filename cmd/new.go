package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/strandnet/strand/state"
)

var newCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a node configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) != 1 {
			_ = cmd.Usage()
			return
		}
		name := args[0]
		err := state.NameValidator(name)
		if err != nil {
			fmt.Printf("Invalid name: %s\n", name)
			os.Exit(-1)
		}

		nodeCfg := state.LocalCfg{
			Id:   state.NodeId(name),
			Bind: cmd.Flag("bind").Value.String(),
		}
		if err := state.LocalConfigValidator(&nodeCfg); err != nil {
			fmt.Printf("Invalid config: %v\n", err)
			os.Exit(-1)
		}

		ncfg, err := yaml.Marshal(&nodeCfg)
		if err != nil {
			panic(err)
		}

		outPath := cmd.Flag("output").Value.String()
		err = os.WriteFile(outPath, ncfg, 0700)
		if err != nil {
			panic(err)
		}
	},
}

var networkCmd = &cobra.Command{
	Use:   "network [name...]",
	Short: "Create a central configuration joining nodes in a chain",
	Long: `Creates a starter central.yaml declaring the named nodes and a chain of
edges between consecutive names. Edit the result to match the real wiring.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 2 {
			_ = cmd.Usage()
			return
		}
		cfg := state.CentralCfg{}
		for _, name := range args {
			if err := state.NameValidator(name); err != nil {
				fmt.Printf("Invalid name: %s\n", name)
				os.Exit(-1)
			}
			cfg.Nodes = append(cfg.Nodes, state.NodeCfg{Id: state.NodeId(name)})
		}
		for i := 0; i+1 < len(args); i++ {
			cfg.Edges = append(cfg.Edges, state.Edge{A: state.NodeId(args[i]), B: state.NodeId(args[i+1])})
		}
		if err := state.CentralConfigValidator(&cfg); err != nil {
			fmt.Printf("Invalid config: %v\n", err)
			os.Exit(-1)
		}

		ccfg, err := yaml.Marshal(&cfg)
		if err != nil {
			panic(err)
		}
		err = os.WriteFile(cmd.Flag("output").Value.String(), ccfg, 0700)
		if err != nil {
			panic(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringP("output", "o", "node.yaml", "node config output file path")
	newCmd.Flags().StringP("bind", "b", "127.0.0.1:7600", "TCP address to accept links on")

	rootCmd.AddCommand(networkCmd)
	networkCmd.Flags().StringP("output", "o", "central.yaml", "central config output file path")
}
