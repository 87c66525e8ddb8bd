package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/covercount/insights-cli/internal/model"
)

var (
	insightsRestaurant string
	insightsLimit      int
	insightsStatus     string
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "List generated insights for a restaurant",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		insights, err := st.ListInsights(ctx, insightsRestaurant, insightsLimit)
		if err != nil {
			return eris.Wrap(err, "list insights")
		}

		if insightsStatus != "" {
			filtered := insights[:0]
			for _, in := range insights {
				if in.Status == model.InsightStatus(insightsStatus) {
					filtered = append(filtered, in)
				}
			}
			insights = filtered
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(insights)
	},
}

func init() {
	insightsCmd.Flags().StringVar(&insightsRestaurant, "restaurant", "", "restaurant ID (required)")
	insightsCmd.Flags().IntVar(&insightsLimit, "limit", 10, "maximum insights to list")
	insightsCmd.Flags().StringVar(&insightsStatus, "status", "", "filter by status (active, pinned, hidden, stale, archived)")
	_ = insightsCmd.MarkFlagRequired("restaurant")
	rootCmd.AddCommand(insightsCmd)
}
