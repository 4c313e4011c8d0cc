package health

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders the report as an interactive HTML page with a
// contributor commit chart and a tier distribution pie.
func (r *Report) WriteHTML(w io.Writer) error {
	page := components.NewPage()
	page.PageTitle = "Project Health"

	page.AddCharts(contributorChart(r), categoryChart(r))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render health page: %w", err)
	}

	return nil
}

func contributorChart(r *Report) components.Charter {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Top Contributors",
			Subtitle: fmt.Sprintf("%d commits, %d contributors", r.CommitCount, r.ContributorCount),
			Left:     "2%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Contributor"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Commits"}),
	)

	labels := make([]string, 0, len(r.TopContributors))
	values := make([]opts.BarData, 0, len(r.TopContributors))

	for _, e := range r.TopContributors {
		labels = append(labels, e.Key)
		values = append(values, opts.BarData{Value: e.Count})
	}

	bar.SetXAxis(labels)
	bar.AddSeries("commits", values)

	return bar
}

func categoryChart(r *Report) components.Charter {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Engagement Tiers",
			Left:  "2%",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	pie.AddSeries("tiers", []opts.PieData{
		{Name: "core", Value: r.Categories.Core},
		{Name: "regular", Value: r.Categories.Regular},
		{Name: "casual", Value: r.Categories.Casual},
	})

	return pie
}
