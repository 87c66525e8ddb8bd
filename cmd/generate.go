package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/covercount/insights-cli/internal/generate"
)

var (
	generateRestaurant string
	generateSales      string
	generateCosts      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate insights for a restaurant",
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

		orch, err := initOrchestrator(st)
		if err != nil {
			return err
		}

		stream := orch.Generate(ctx, generate.GenerateRequest{
			RestaurantID: generateRestaurant,
			SalesSummary: generateSales,
			CostSummary:  generateCosts,
		})
		for stream.Next() {
			e := stream.Event()
			switch e.Type {
			case generate.EventStatus:
				fmt.Fprintf(os.Stderr, "… %s\n", e.Status)
			case generate.EventText:
				fmt.Fprint(os.Stderr, e.Text)
			case generate.EventConfidence:
				fmt.Fprintf(os.Stderr, "confidence: %d/100 (%s)\n", e.Confidence.Score, e.Confidence.Level)
			case generate.EventError:
				fmt.Fprintf(os.Stderr, "\nerror: %s\n", e.Message)
			}
		}
		if err := stream.Err(); err != nil {
			return eris.Wrap(err, "generate")
		}

		fmt.Fprintln(os.Stderr)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stream.Insight())
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateRestaurant, "restaurant", "", "restaurant ID (required)")
	generateCmd.Flags().StringVar(&generateSales, "sales-summary", "", "pre-aggregated current period sales summary")
	generateCmd.Flags().StringVar(&generateCosts, "cost-summary", "", "pre-aggregated current period cost summary")
	_ = generateCmd.MarkFlagRequired("restaurant")
	rootCmd.AddCommand(generateCmd)
}
