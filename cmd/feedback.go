package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/covercount/insights-cli/internal/model"
)

var (
	feedbackInsight string
	feedbackRating  string
	feedbackComment string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Record feedback on a generated insight",
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

		record, err := orch.RecordFeedback(ctx, feedbackInsight, model.FeedbackRating(feedbackRating), feedbackComment)
		if err != nil {
			return eris.Wrap(err, "record feedback")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

func init() {
	feedbackCmd.Flags().StringVar(&feedbackInsight, "insight", "", "insight ID (required)")
	feedbackCmd.Flags().StringVar(&feedbackRating, "rating", "", "helpful, not_helpful, or incorrect (required)")
	feedbackCmd.Flags().StringVar(&feedbackComment, "comment", "", "optional comment")
	_ = feedbackCmd.MarkFlagRequired("insight")
	_ = feedbackCmd.MarkFlagRequired("rating")
	rootCmd.AddCommand(feedbackCmd)
}
