package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/covercount/insights-cli/internal/confidence"
)

var confidenceRestaurant string

var confidenceCmd = &cobra.Command{
	Use:   "confidence",
	Short: "Show the data confidence score for a restaurant",
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

		conf, err := confidence.NewScorer(st).Score(ctx, confidenceRestaurant)
		if err != nil {
			return eris.Wrap(err, "score confidence")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(conf)
	},
}

func init() {
	confidenceCmd.Flags().StringVar(&confidenceRestaurant, "restaurant", "", "restaurant ID (required)")
	_ = confidenceCmd.MarkFlagRequired("restaurant")
	rootCmd.AddCommand(confidenceCmd)
}
