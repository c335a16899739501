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

	"github.com/parcelworks/lvt-cli/internal/scenario"
)

var taxCmd = &cobra.Command{
	Use:   "tax",
	Short: "Model current-regime and split-rate property taxes",
}

// -- tax millage --

var taxMillageCmd = &cobra.Command{
	Use:   "millage",
	Short: "Compute current liabilities from millage rates",
	Long:  "Recomputes each parcel's current tax from its assessed value and millage rate, applying exemptions and percentage caps, and writes the result back to the dataset.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dataset, _ := cmd.Flags().GetString("dataset")
		county, _ := cmd.Flags().GetString("county")
		secondRate, _ := cmd.Flags().GetFloat64("second-millage")
		save, _ := cmd.Flags().GetBool("save")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		parcels, err := st.LoadParcels(ctx, dataset)
		if err != nil {
			return err
		}

		result, err := scenario.CurrentTax(parcels, scenario.MillageOptions{SecondMillageRate: secondRate})
		if err != nil {
			return err
		}

		if save {
			if err := st.SaveParcels(ctx, dataset, county, result.Parcels); err != nil {
				return eris.Wrap(err, "tax millage: save")
			}
		}

		p := message.NewPrinter(language.English)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = p.Fprintf(w, "Parcels:\t%d\n", len(result.Parcels))
		_, _ = p.Fprintf(w, "Total revenue:\t$%.2f\n", result.TotalRevenue)
		if secondRate > 0 {
			_, _ = p.Fprintf(w, "Second levy revenue:\t$%.2f\n", result.SecondRevenue)
		}
		_, _ = p.Fprintf(w, "Capped:\t%d\n", result.Capped)
		_ = w.Flush()
		return nil
	},
}

// -- tax splitrate --

var taxSplitRateCmd = &cobra.Command{
	Use:   "splitrate",
	Short: "Solve a revenue-targeted split-rate tax",
	Long:  "Models a split-rate property tax where land is taxed at a multiple of the improvement rate, solving both millages to hit the revenue target.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dataset, _ := cmd.Flags().GetString("dataset")
		policy, _ := cmd.Flags().GetString("policy")
		target, _ := cmd.Flags().GetFloat64("target-revenue")
		ratio, _ := cmd.Flags().GetFloat64("ratio")

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
			return eris.Wrap(err, "tax splitrate")
		}

		result, err := scenario.SplitRate(joined, target, scenario.SplitRateOptions{Ratio: ratio})
		if err != nil {
			return err
		}

		formatSplitRateSummary(os.Stdout, result)
		return nil
	},
}

func formatSplitRateSummary(out io.Writer, r *scenario.SplitRateResult) {
	p := message.NewPrinter(language.English)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Land millage:\t%.4f\n", r.LandMillage)
	_, _ = fmt.Fprintf(w, "Improvement millage:\t%.4f\n", r.ImprovementMillage)
	_, _ = p.Fprintf(w, "Total revenue:\t$%.2f\n", r.TotalRevenue)
	_, _ = p.Fprintf(w, "Parcels:\t%d\n", len(r.Rows))
	_, _ = p.Fprintf(w, "Capped:\t%d\n", r.Capped)
	_ = w.Flush()
}

func init() {
	taxMillageCmd.Flags().String("dataset", "", "dataset name")
	taxMillageCmd.Flags().String("county", "", "5-digit county FIPS for bookkeeping when saving")
	taxMillageCmd.Flags().Float64("second-millage", 0, "secondary levy rate to report alongside the primary")
	taxMillageCmd.Flags().Bool("save", false, "write computed liabilities back to the dataset")
	_ = taxMillageCmd.MarkFlagRequired("dataset")

	taxSplitRateCmd.Flags().String("dataset", "", "dataset name")
	taxSplitRateCmd.Flags().String("policy", "", "unmatched-parcel policy: keep, drop, strict")
	taxSplitRateCmd.Flags().Float64("target-revenue", 0, "total revenue the solved rates must produce")
	taxSplitRateCmd.Flags().Float64("ratio", 3, "land rate as a multiple of the improvement rate")
	_ = taxSplitRateCmd.MarkFlagRequired("dataset")
	_ = taxSplitRateCmd.MarkFlagRequired("target-revenue")

	taxCmd.AddCommand(taxMillageCmd)
	taxCmd.AddCommand(taxSplitRateCmd)
	rootCmd.AddCommand(taxCmd)
}
