package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/covercount/insights-cli/internal/model"
)

var profileFile string

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Create or update a restaurant profile from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(profileFile)
		if err != nil {
			return eris.Wrap(err, "read profile file")
		}

		var profile model.RestaurantProfile
		if err := json.Unmarshal(data, &profile); err != nil {
			return eris.Wrap(err, "parse profile file")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		saved, err := st.SaveProfile(ctx, profile)
		if err != nil {
			return eris.Wrap(err, "save profile")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(saved)
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileFile, "file", "", "path to profile JSON (required)")
	_ = profileCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(profileCmd)
}
