package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/danielpatrickdp/medalfit/internal/inference"
	"github.com/danielpatrickdp/medalfit/internal/serving"
	"github.com/spf13/cobra"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the medal for one athlete",
	Long:  "Runs one row through the exported model in --model-dir, or through a running prediction service when --addr is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig(cmd)
		f := cmd.Flags()
		age, _ := f.GetFloat64("age")
		rank, _ := f.GetFloat64("rank")
		row := map[string]string{}
		for _, col := range []string{"gender", "noc", "discipline", "sport"} {
			v, _ := f.GetString(col)
			row[col] = v
		}
		in := inference.Input{
			Numeric: map[string]float64{"Age": age, "Rank": rank},
			Categorical: map[string]string{
				"Gender":     row["gender"],
				"NOC":        row["noc"],
				"Discipline": row["discipline"],
				"Sport":      row["sport"],
			},
		}

		if addr, _ := f.GetString("addr"); addr != "" {
			return predictRemote(cmd.Context(), cmd.OutOrStdout(), addr, in)
		}

		b, err := inference.LoadBundle(stringFlag(cmd, "model-dir", cfg.OutDir))
		if err != nil {
			return err
		}
		p, err := b.Predict(in)
		if err != nil {
			return err
		}
		printPrediction(cmd.OutOrStdout(), p.Label, p.Ranked())
		return nil
	},
}

func init() {
	f := predictCmd.Flags()
	f.String("model-dir", "", "directory with the exported model (overrides OUT_DIR)")
	f.String("addr", "", "prediction service address; empty runs locally")
	f.Float64("age", 0, "athlete age")
	f.Float64("rank", 0, "athlete rank")
	f.String("gender", "", "athlete gender")
	f.String("noc", "", "national olympic committee code")
	f.String("discipline", "", "discipline")
	f.String("sport", "", "sport")
}

func predictRemote(ctx context.Context, w io.Writer, addr string, in inference.Input) error {
	client, err := serving.NewClient(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	row := map[string]any{}
	for k, v := range in.Numeric {
		row[k] = v
	}
	for k, v := range in.Categorical {
		row[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := client.Predict(ctx, row)
	if err != nil {
		return err
	}

	scores := make([]inference.Score, 0, len(res.Probabilities))
	for label, p := range res.Probabilities {
		scores = append(scores, inference.Score{Label: label, Probability: p})
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Probability != scores[j].Probability {
			return scores[i].Probability > scores[j].Probability
		}
		return scores[i].Label < scores[j].Label
	})
	printPrediction(w, res.Label, scores)
	return nil
}

func printPrediction(w io.Writer, label string, scores []inference.Score) {
	fmt.Fprintf(w, "Predicted: %s\n", label)
	for _, s := range scores {
		fmt.Fprintf(w, "  %-10s %5.1f%%\n", s.Label, s.Probability*100)
	}
}
