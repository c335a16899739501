package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/parcelworks/lvt-cli/internal/model"
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a parcel dataset against its census table",
	Long:  "Left-joins stored parcels against stored block-group demographics and reports match coverage. Useful for validating a dataset before running scenarios.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dataset, _ := cmd.Flags().GetString("dataset")
		policy, _ := cmd.Flags().GetString("policy")

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
			return eris.Wrap(err, "join")
		}

		formatJoinReport(os.Stdout, joined)
		return nil
	},
}

func init() {
	joinCmd.Flags().String("dataset", "", "dataset name")
	joinCmd.Flags().String("policy", "", "unmatched-parcel policy: keep, drop, strict (default from config)")
	_ = joinCmd.MarkFlagRequired("dataset")

	rootCmd.AddCommand(joinCmd)
}

// formatJoinReport writes match coverage and per-label breakdowns to w.
func formatJoinReport(out io.Writer, joined []model.JoinedParcelRecord) {
	var matched int
	labelCounts := make(map[string]map[string]int)

	for _, j := range joined {
		if !j.Matched {
			continue
		}
		matched++
		if j.Tract == nil {
			continue
		}
		for name, value := range j.Tract.Labels {
			if labelCounts[name] == nil {
				labelCounts[name] = make(map[string]int)
			}
			labelCounts[name][value]++
		}
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Parcels:\t%d\n", len(joined))
	_, _ = fmt.Fprintf(w, "Matched:\t%d\n", matched)
	_, _ = fmt.Fprintf(w, "Unmatched:\t%d\n", len(joined)-matched)
	if len(joined) > 0 {
		_, _ = fmt.Fprintf(w, "Coverage:\t%.1f%%\n", float64(matched)/float64(len(joined))*100)
	}
	_ = w.Flush()

	names := make([]string, 0, len(labelCounts))
	for name := range labelCounts {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, _ = fmt.Fprintf(out, "\n%s:\n", name)
		values := make([]string, 0, len(labelCounts[name]))
		for v := range labelCounts[name] {
			values = append(values, v)
		}
		sort.Strings(values)

		lw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, v := range values {
			_, _ = fmt.Fprintf(lw, "  %s\t%d\n", v, labelCounts[name][v])
		}
		_ = lw.Flush()
	}
}
