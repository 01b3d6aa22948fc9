package cmd

import (
	"os"

	"github.com/asikorin/kara/core/pipeline"
	"github.com/spf13/cobra"
)

// stageCmd is what every pipeline stage runs before becoming its program.
var stageCmd = &cobra.Command{
	Use:                pipeline.StageCommand,
	Hidden:             true,
	DisableFlagParsing: true,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(pipeline.RunStage(args))
	},
}

func init() {
	rootCmd.AddCommand(stageCmd)
}
