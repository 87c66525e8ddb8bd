package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/covercount/insights-cli/internal/registry"
)

var (
	connectRestaurant    string
	disconnectRestaurant string
)

var connectCmd = &cobra.Command{
	Use:   "connect <layer>",
	Short: "Mark a data layer as connected for a restaurant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConnection(cmd, connectRestaurant, args[0], true)
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect <layer>",
	Short: "Mark a data layer as disconnected for a restaurant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setConnection(cmd, disconnectRestaurant, args[0], false)
	},
}

func setConnection(cmd *cobra.Command, restaurantID, layerID string, connected bool) error {
	layer, ok := registry.Get(layerID)
	if !ok {
		return eris.Errorf("unknown data layer: %s (run 'insights-cli layers' for the catalog)", layerID)
	}

	ctx := cmd.Context()
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return eris.Wrap(err, "migrate store")
	}

	if err := st.SetConnection(ctx, restaurantID, layer.ID, connected); err != nil {
		return eris.Wrapf(err, "set connection %s", layer.ID)
	}

	zap.L().Info("connection updated",
		zap.String("restaurant_id", restaurantID),
		zap.String("layer", layer.ID),
		zap.Bool("connected", connected),
	)
	return nil
}

func init() {
	connectCmd.Flags().StringVar(&connectRestaurant, "restaurant", "", "restaurant ID (required)")
	_ = connectCmd.MarkFlagRequired("restaurant")
	disconnectCmd.Flags().StringVar(&disconnectRestaurant, "restaurant", "", "restaurant ID (required)")
	_ = disconnectCmd.MarkFlagRequired("restaurant")
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
}
