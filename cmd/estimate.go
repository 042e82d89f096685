package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Tilak559/gutter-estimate/internal/model"
	"github.com/Tilak559/gutter-estimate/internal/pipeline"
)

var estimateSummary bool

var estimateCmd = &cobra.Command{
	Use:   "estimate \"<address>\"",
	Short: "Estimate gutter length for a single address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := pipeline.NewFromConfig(ctx, cfg)
		if err != nil {
			return err
		}
		defer p.Close() //nolint:errcheck

		report, err := p.Estimate(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "estimate")
		}

		if estimateSummary {
			printSummary(report)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func printSummary(r *model.Report) {
	est := r.GutterEstimate
	fmt.Printf("Address:      %s\n", r.Address)
	fmt.Printf("Roof type:    %s (%.0f%% confidence, %s)\n",
		est.RoofType, est.Confidence*100, r.RoofClassification.Method)
	fmt.Printf("Eave length:  %.1f ft\n", est.EaveLengthFt)
	fmt.Printf("Gutter total: %.1f ft  (range %.1f - %.1f ft)\n",
		est.TotalGutterFt, est.EstimatedRange.Min, est.EstimatedRange.Max)
	fmt.Printf("Downspouts:   %d\n", est.DownspoutsEstimate)
	fmt.Printf("Footprint:    %s, %.1f m perimeter\n",
		r.BuildingInsights.FootprintSource, r.BuildingInsights.PerimeterM)
	if len(est.Warnings) > 0 {
		fmt.Printf("Warnings:\n  - %s\n", strings.Join(est.Warnings, "\n  - "))
	}
}

func init() {
	estimateCmd.Flags().BoolVar(&estimateSummary, "summary", false, "print a human-readable summary instead of JSON")
	rootCmd.AddCommand(estimateCmd)
}
