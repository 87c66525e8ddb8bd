package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/covercount/insights-cli/internal/registry"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List the data layer catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		type layerRow struct {
			ID          string `yaml:"id"`
			Label       string `yaml:"label"`
			Weight      int    `yaml:"weight"`
			Description string `yaml:"description"`
			EnablePath  string `yaml:"enable_path"`
		}

		rows := make([]layerRow, 0, len(registry.Layers()))
		for _, l := range registry.Layers() {
			rows = append(rows, layerRow{
				ID:          l.ID,
				Label:       l.Label,
				Weight:      l.Weight,
				Description: l.Description,
				EnablePath:  l.EnablePath,
			})
		}

		out, err := yaml.Marshal(map[string]any{
			"total_weight": registry.TotalWeight(),
			"layers":       rows,
		})
		if err != nil {
			return eris.Wrap(err, "marshal layers")
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(layersCmd)
}
