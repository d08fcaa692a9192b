package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/danielpatrickdp/medalfit/internal/logging"
	"github.com/danielpatrickdp/medalfit/internal/registry"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded training runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		last, _ := cmd.Flags().GetInt("last")
		id, _ := cmd.Flags().GetString("id")
		jsonOut, _ := cmd.Flags().GetBool("json")

		reg, err := openRegistry(cmd, cfg)
		if err != nil {
			return err
		}
		defer reg.Close()

		if id != "" {
			return runDetailMode(cmd.OutOrStdout(), reg, id, jsonOut)
		}
		return runListMode(cmd.OutOrStdout(), reg, last, jsonOut)
	},
}

func init() {
	runsCmd.Flags().String("registry", "", "run registry database (overrides REGISTRY)")
	runsCmd.Flags().Int("last", 20, "show N most recent runs")
	runsCmd.Flags().String("id", "", "show one run in detail")
	runsCmd.Flags().Bool("json", false, "output as JSON instead of table")
}

// #region list-mode

type listRow struct {
	RunID     string   `json:"run_id"`
	CreatedAt string   `json:"created_at"`
	Used      int      `json:"records_used"`
	Train     int      `json:"train_size"`
	Test      int      `json:"test_size"`
	Accuracy  float64  `json:"accuracy"`
	Classes   []string `json:"classes"`
	Warnings  int      `json:"warnings"`
}

func runListMode(w io.Writer, reg *registry.Registry, last int, jsonOut bool) error {
	runs, err := reg.List(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	rows := make([]listRow, len(runs))
	for i, r := range runs {
		rows[i] = listRow{
			RunID:     r.RunID,
			CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Used:      r.RecordsUsed,
			Train:     r.TrainSize,
			Test:      r.TestSize,
			Accuracy:  r.Report.Accuracy,
			Classes:   r.Classes,
			Warnings:  len(r.Warnings),
		}
	}
	if jsonOut {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "%-12s  %8s  %6s  %5s  %8s  %4s  %s\n", "Run", "Records", "Train", "Test", "Accuracy", "Warn", "Time")
	fmt.Fprintf(w, "%-12s+-%8s+-%6s+-%5s+-%8s+-%4s+-%s\n",
		"------------", "--------", "------", "-----", "--------", "----", "--------------------")
	for _, r := range rows {
		fmt.Fprintf(w, "%-12s  %8d  %6d  %5d  %8.4f  %4d  %s\n",
			shortID(r.RunID), r.Used, r.Train, r.Test, r.Accuracy, r.Warnings, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	registry.Run
	Stages []logging.StageEntry `json:"stages"`
}

func runDetailMode(w io.Writer, reg *registry.Registry, id string, jsonOut bool) error {
	run, err := reg.Get(id)
	if err != nil {
		return err
	}
	stages, err := logging.Stages(reg.DB(), id)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(w, detailOutput{Run: run, Stages: stages})
	}

	fmt.Fprintf(w, "Run:        %s\n", run.RunID)
	fmt.Fprintf(w, "Created:    %s\n", run.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Fprintf(w, "Dataset:    %s\n", run.Dataset)
	fmt.Fprintf(w, "Records:    %d in, %d used (%d train / %d test)\n", run.RecordsIn, run.RecordsUsed, run.TrainSize, run.TestSize)
	fmt.Fprintf(w, "Classes:    %v\n", run.Classes)
	for col, s := range run.Scales {
		fmt.Fprintf(w, "Scale:      %-10s %.4f\n", col, s)
	}
	for col, v := range run.Vocabulary {
		fmt.Fprintf(w, "Vocabulary: %-10s %d categories\n", col, len(v))
	}
	fmt.Fprintf(w, "\n%s\n", run.Report.String())
	if len(stages) > 0 {
		fmt.Fprintln(w, "\nStages:")
		for _, s := range stages {
			fmt.Fprintf(w, "  %-9s %s\n", s.Stage, s.Detail)
		}
	}
	return nil
}

// #endregion detail-mode

// #region helpers

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// #endregion helpers

