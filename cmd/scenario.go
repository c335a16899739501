package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/parcelworks/lvt-cli/internal/export"
	"github.com/parcelworks/lvt-cli/internal/scenario"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run an LVT shift scenario over a dataset",
	Long:  "Joins a stored dataset, computes per-parcel liabilities under the configured land-value-tax regime, stores the run, and optionally exports results.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dataset, _ := cmd.Flags().GetString("dataset")
		configPath, _ := cmd.Flags().GetString("config")
		policy, _ := cmd.Flags().GetString("policy")
		csvOut, _ := cmd.Flags().GetString("output")
		xlsxOut, _ := cmd.Flags().GetString("xlsx")

		var scenarioCfg *scenario.Config
		var err error
		if configPath != "" {
			scenarioCfg, err = scenario.LoadConfig(configPath)
			if err != nil {
				return err
			}
		} else {
			scenarioCfg, err = scenarioConfigFromFlags(cmd)
			if err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		joined, err := loadJoined(ctx, st, dataset, policy)
		if err != nil {
			return eris.Wrap(err, "scenario")
		}

		result, err := scenario.Run(joined, *scenarioCfg)
		if err != nil {
			return err
		}

		rec, err := st.SaveRun(ctx, dataset, result)
		if err != nil {
			return eris.Wrap(err, "scenario: save run")
		}

		if csvOut != "" {
			if err := export.ScenarioCSV(result, csvOut); err != nil {
				return err
			}
		}
		if xlsxOut != "" {
			if err := export.ScenarioXLSX(result, xlsxOut); err != nil {
				return err
			}
		}

		fmt.Fprintf(os.Stdout, "Run %s saved\n\n", rec.ID)
		formatScenarioSummary(os.Stdout, result.Summary)
		return nil
	},
}

// scenarioConfigFromFlags assembles a scenario config from command flags when
// no YAML config is given.
func scenarioConfigFromFlags(cmd *cobra.Command) (*scenario.Config, error) {
	revenueNeutral, _ := cmd.Flags().GetBool("revenue-neutral")
	landRate, _ := cmd.Flags().GetFloat64("land-rate")
	improvementRate, _ := cmd.Flags().GetFloat64("improvement-rate")
	targetRevenue, _ := cmd.Flags().GetFloat64("target-revenue")
	groupBy, _ := cmd.Flags().GetStringSlice("group-by")

	cfg := &scenario.Config{
		RevenueNeutral:  revenueNeutral,
		LandRate:        landRate,
		ImprovementRate: improvementRate,
		TargetRevenue:   targetRevenue,
		GroupBy:         groupBy,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// formatScenarioSummary writes a human-readable run summary to w.
func formatScenarioSummary(out io.Writer, s scenario.Summary) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintf(w, "Land rate:\t%.6f\n", s.LandRate)
	_, _ = fmt.Fprintf(w, "Improvement rate:\t%.6f\n", s.ImprovementRate)
	_, _ = p.Fprintf(w, "Total current tax:\t$%.2f\n", s.TotalCurrentTax)
	_, _ = p.Fprintf(w, "Total new tax:\t$%.2f\n", s.TotalNewTax)
	_, _ = p.Fprintf(w, "Parcels:\t%d\n", s.Parcels)
	_, _ = p.Fprintf(w, "Winners (pay less):\t%d\n", s.Winners)
	_, _ = p.Fprintf(w, "Losers (pay more):\t%d\n", s.Losers)
	_, _ = p.Fprintf(w, "Unchanged:\t%d\n", s.Unchanged)
	_, _ = p.Fprintf(w, "Mean shift:\t$%.2f\n", s.MeanShift)
	_, _ = p.Fprintf(w, "Median shift:\t$%.2f\n", s.MedianShift)
	_ = w.Flush()

	if len(s.Groups) > 0 {
		_, _ = fmt.Fprintln(out)
		gw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(gw, "GROUP\tVALUE\tPARCELS\tMEAN SHIFT\tMEDIAN SHIFT\tWINNERS\tLOSERS")
		for _, g := range s.Groups {
			_, _ = p.Fprintf(gw, "%s\t%s\t%d\t$%.2f\t$%.2f\t%d\t%d\n",
				g.Covariate, g.Value, g.Parcels, g.MeanShift, g.MedianShift, g.Winners, g.Losers)
		}
		_ = gw.Flush()
	}
}

func init() {
	scenarioCmd.Flags().String("dataset", "", "dataset name")
	scenarioCmd.Flags().String("config", "", "path to a scenario YAML config")
	scenarioCmd.Flags().String("policy", "", "unmatched-parcel policy: keep, drop, strict")
	scenarioCmd.Flags().Bool("revenue-neutral", false, "solve the land rate to preserve total revenue")
	scenarioCmd.Flags().Float64("land-rate", 0, "explicit land tax rate")
	scenarioCmd.Flags().Float64("improvement-rate", 0, "improvement tax rate")
	scenarioCmd.Flags().Float64("target-revenue", 0, "solve the land rate for this total revenue")
	scenarioCmd.Flags().StringSlice("group-by", nil, "demographic labels to aggregate shifts by (e.g. income_bracket,tract)")
	scenarioCmd.Flags().String("output", "", "write per-parcel results to this CSV path")
	scenarioCmd.Flags().String("xlsx", "", "write a results workbook to this XLSX path")
	_ = scenarioCmd.MarkFlagRequired("dataset")

	rootCmd.AddCommand(scenarioCmd)
}
