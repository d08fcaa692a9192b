package main

import (
	"fmt"

	"github.com/danielpatrickdp/medalfit/internal/pipeline"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train on the dataset and export the model",
	Long:  "Reads DATASET (default \"2020_Olympics_Dataset_Cleaned (1).csv\"), trains, prints the held-out report and writes the graph and class list to OUT_DIR (default model). With --registry or REGISTRY the run is also recorded in that database.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		cfg.DatasetPath = stringFlag(cmd, "dataset", cfg.DatasetPath)
		cfg.OutDir = stringFlag(cmd, "out", cfg.OutDir)
		cfg.Registry = stringFlag(cmd, "registry", cfg.Registry)

		runner := pipeline.NewRunner(cfg, newLogger(cfg), cmd.OutOrStdout())
		sum, err := runner.Run(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Run:      %s\n", sum.RunID)
		fmt.Fprintf(out, "Records:  %d read, %d unlabeled, %d dropped, %d used\n",
			sum.RecordsIn, sum.Unlabeled, sum.Dropped, sum.RecordsUsed)
		fmt.Fprintf(out, "Split:    %d train / %d test\n", sum.Outcome.TrainSize, sum.Outcome.TestSize)
		fmt.Fprintf(out, "Classes:  %v\n", sum.Artifact.Classes)
		fmt.Fprintf(out, "Graph:    %s\n", sum.Paths.Graph)
		fmt.Fprintf(out, "Labels:   %s\n", sum.Paths.Classes)
		switch {
		case sum.Recorded:
			fmt.Fprintf(out, "Registry: %s\n", cfg.Registry)
		case cfg.Recording():
			fmt.Fprintln(out, "Registry: not recorded (see log)")
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().String("dataset", "", "CSV path (overrides DATASET)")
	trainCmd.Flags().String("out", "", "output directory (overrides OUT_DIR)")
	trainCmd.Flags().String("registry", "", "record the run in this SQLite database (overrides REGISTRY)")
}
