package main

import (
	"fmt"

	"github.com/danielpatrickdp/medalfit/internal/replay"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-train a recorded run and compare with its stored graph",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		id, _ := cmd.Flags().GetString("id")
		datasetPath, _ := cmd.Flags().GetString("dataset")

		reg, err := openRegistry(cmd, cfg)
		if err != nil {
			return err
		}
		defer reg.Close()

		res, err := replay.Replay(reg, id, datasetPath)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if res.Match {
			fmt.Fprintf(w, "run %s reproduces from %s\n", shortID(res.RunID), res.Dataset)
			return nil
		}
		for _, d := range res.Diffs {
			fmt.Fprintf(w, "diff: %s\n", d)
		}
		return fmt.Errorf("run %s does not reproduce (%d differences)", res.RunID, len(res.Diffs))
	},
}

func init() {
	replayCmd.Flags().String("id", "", "run ID to replay")
	replayCmd.Flags().String("registry", "", "run registry database (overrides REGISTRY)")
	replayCmd.Flags().String("dataset", "", "dataset to re-train on (defaults to the recorded path)")
	replayCmd.MarkFlagRequired("id")
}
