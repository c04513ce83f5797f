package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
)

var (
	configPath string
	debug      bool
)

var root = &cobra.Command{
	Use:           "annotator",
	Short:         "Annotator - collaborative image annotation backend",
	SilenceErrors: true,
	SilenceUsage:  true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func init() {
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the config file (default ./config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newUserCmd(), newBenchCmd())
}

func main() {
	if err := root.Execute(); err != nil {
		logger.LogError("%v", err)
		os.Exit(1)
	}
}
