package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/trustfang/pkg/health"
)

// NewMetricsCommand creates the metrics catalog cobra command.
func NewMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the available derived metrics",
		Run: func(_ *cobra.Command, _ []string) {
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Name", "Type", "Description"})

			for _, meta := range health.Catalog().All() {
				t.AppendRow(table.Row{meta.Name(), meta.Type(), meta.Description()})
			}

			t.Render()
		},
	}
}
