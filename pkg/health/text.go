package health

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/trustfang/pkg/ledger"
)

const textMaxLanguages = 8

// WriteText renders the report as human-readable terminal tables.
func (r *Report) WriteText(w io.Writer, noColor bool) error {
	heading := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)

	if noColor {
		heading.DisableColor()
		warn.DisableColor()
	}

	heading.Fprintln(w, "Project Health")
	writeSummaryTable(w, r)

	fmt.Fprintln(w)
	heading.Fprintln(w, "Top Contributors")
	writeEntryTable(w, r.TopContributors)

	fmt.Fprintln(w)
	heading.Fprintln(w, "Top Organizations")
	writeEntryTable(w, r.TopOrganizations)

	if len(r.Languages) > 0 {
		fmt.Fprintln(w)
		heading.Fprintln(w, "Languages")
		writeLanguageTable(w, r.Languages)
	}

	if r.SkippedEvents > 0 {
		fmt.Fprintln(w)
		warn.Fprintf(w, "%d malformed events skipped\n", r.SkippedEvents)
	}

	return nil
}

func writeSummaryTable(w io.Writer, r *Report) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendRows([]table.Row{
		{"Commits", humanize.Comma(int64(r.CommitCount))},
		{"Contributors", humanize.Comma(int64(r.ContributorCount))},
		{"Pony factor", r.PonyFactor},
		{"Elephant factor", r.ElephantFactor},
		{"Core / Regular / Casual", fmt.Sprintf("%d / %d / %d",
			r.Categories.Core, r.Categories.Regular, r.Categories.Casual)},
		{"Lines added", humanize.Comma(int64(r.CommitSize.AddedLines))},
		{"Lines removed", humanize.Comma(int64(r.CommitSize.RemovedLines))},
		{"Message length avg", fmt.Sprintf("%.2f", r.MessageSize.Average)},
		{"Message length median", fmt.Sprintf("%.1f", r.MessageSize.Median)},
		{"Commits/week", fmt.Sprintf("%.3f (over %d days)", r.AvgCommitsWeek, r.DaysInterval)},
	})

	for cat, n := range sortedCounts(r.FileTypes) {
		t.AppendRow(table.Row{"Files: " + cat, humanize.Comma(int64(n))})
	}

	t.Render()
}

func writeEntryTable(w io.Writer, entries []ledger.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "Commits"})

	for i, e := range entries {
		t.AppendRow(table.Row{i + 1, e.Key, humanize.Comma(int64(e.Count))})
	}

	t.Render()
}

func writeLanguageTable(w io.Writer, languages map[string]LineStats) {
	type langRow struct {
		name string
		ls   LineStats
	}

	rows := make([]langRow, 0, len(languages))
	for name, ls := range languages {
		rows = append(rows, langRow{name: name, ls: ls})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ls.Added != rows[j].ls.Added {
			return rows[i].ls.Added > rows[j].ls.Added
		}

		return rows[i].name < rows[j].name
	})

	if len(rows) > textMaxLanguages {
		rows = rows[:textMaxLanguages]
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Language", "Added", "Removed"})

	for _, row := range rows {
		t.AppendRow(table.Row{row.name, humanize.Comma(int64(row.ls.Added)), humanize.Comma(int64(row.ls.Removed))})
	}

	t.Render()
}

// sortedCounts yields map entries in ascending key order for stable output.
func sortedCounts(m map[string]int) func(func(string, int) bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return func(yield func(string, int) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}
