package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/covercount/insights-cli/internal/facts"
)

var factsRestaurant string

var factsCmd = &cobra.Command{
	Use:   "facts",
	Short: "Inspect and refresh derived performance facts",
}

var factsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute and persist facts from sales history",
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

		pipeline := facts.NewPipeline(st, st, facts.WithWindowMonths(cfg.Facts.WindowMonths))
		derived, err := pipeline.Refresh(ctx, factsRestaurant)
		if err != nil {
			return eris.Wrap(err, "refresh facts")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(derived)
	},
}

var factsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted facts without recomputing",
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

		profile, err := st.GetProfile(ctx, factsRestaurant)
		if err != nil {
			return eris.Wrap(err, "load profile")
		}
		if profile.Facts == nil {
			zap.L().Info("no facts derived yet", zap.String("restaurant_id", factsRestaurant))
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"facts":      profile.Facts,
			"updated_at": profile.FactsUpdatedAt,
		})
	},
}

func init() {
	factsCmd.PersistentFlags().StringVar(&factsRestaurant, "restaurant", "", "restaurant ID (required)")
	_ = factsCmd.MarkPersistentFlagRequired("restaurant")
	factsCmd.AddCommand(factsRefreshCmd)
	factsCmd.AddCommand(factsShowCmd)
	rootCmd.AddCommand(factsCmd)
}
