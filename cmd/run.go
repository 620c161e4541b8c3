package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/strandnet/strand/core"
	"github.com/strandnet/strand/state"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a strand node",
	Long:  `This will run a strand node on the current host until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		var centralCfg state.CentralCfg
		file, err := os.ReadFile(centralConfigPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &centralCfg)
		if err != nil {
			panic(err)
		}

		var nodeCfg state.LocalCfg
		file, err = os.ReadFile(nodeConfigPath)
		if err != nil {
			panic(err)
		}
		err = yaml.Unmarshal(file, &nodeCfg)
		if err != nil {
			panic(err)
		}

		err = state.CentralConfigValidator(&centralCfg)
		if err != nil {
			panic(err)
		}
		err = state.LocalConfigValidator(&nodeCfg)
		if err != nil {
			panic(err)
		}

		level := slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			level = slog.LevelDebug
		}

		node, err := core.Start(centralCfg, nodeCfg, level, nil)
		if err != nil {
			panic(err)
		}

		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-c:
			node.Stop()
		case <-node.Done():
			node.Stop()
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().BoolVarP(&state.DBG_log_frames, "lframes", "f", false, "Log every frame crossing a link")
	runCmd.Flags().BoolVarP(&state.DBG_log_route_table, "ltable", "t", false, "Log the route table whenever it changes")
}
