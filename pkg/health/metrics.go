package health

import (
	"errors"
	"sort"

	"github.com/Sumatoshi-tech/trustfang/pkg/ledger"
	"github.com/Sumatoshi-tech/trustfang/pkg/metrics"
)

// ErrInvalidDaysInterval indicates a non-positive cadence window. This is
// a caller contract violation and is surfaced rather than guarded.
var ErrInvalidDaysInterval = errors.New("health: days interval must be positive")

// Contributor tier share thresholds: a contributor is core while the
// cumulative commit share up to and including them stays within the core
// threshold, regular within the regular threshold, casual otherwise.
const (
	coreShareThreshold    = 0.80
	regularShareThreshold = 0.95
)

// daysPerWeek converts a per-day rate into a per-week denominator.
const daysPerWeek = 7

// CategoryCounts holds the number of contributors per engagement tier.
type CategoryCounts struct {
	Core    int `json:"core"    yaml:"core"`
	Regular int `json:"regular" yaml:"regular"`
	Casual  int `json:"casual"  yaml:"casual"`
}

// CommitSize holds cumulative commit size totals.
type CommitSize struct {
	AddedLines   int `json:"added_lines"   yaml:"added_lines"`
	RemovedLines int `json:"removed_lines" yaml:"removed_lines"`
}

// MessageSize holds commit-message length statistics.
type MessageSize struct {
	Total   int     `json:"total"   yaml:"total"`
	Average float64 `json:"average" yaml:"average"`
	Median  float64 `json:"median"  yaml:"median"`
}

// --- Metric implementations ---

// ShareFactorMetric computes the smallest k such that the top-k ledger
// entries (by ranked order) cover at least half of the grand total. With
// the identity ledger this is the pony factor; with the organization
// ledger, the elephant factor.
type ShareFactorMetric struct {
	metrics.MetricMeta
}

// NewPonyFactorMetric creates the pony factor metric.
func NewPonyFactorMetric() *ShareFactorMetric {
	return &ShareFactorMetric{
		MetricMeta: metrics.MetricMeta{
			MetricName:        "pony_factor",
			MetricDisplayName: "Pony Factor",
			MetricDescription: "Minimum number of top contributors whose combined commits reach " +
				"at least half of all commits. Lower values mean higher bus-factor risk.",
			MetricType: "factor",
		},
	}
}

// NewElephantFactorMetric creates the elephant factor metric.
func NewElephantFactorMetric() *ShareFactorMetric {
	return &ShareFactorMetric{
		MetricMeta: metrics.MetricMeta{
			MetricName:        "elephant_factor",
			MetricDisplayName: "Elephant Factor",
			MetricDescription: "Minimum number of top organizations (by email domain) whose combined " +
				"commits reach at least half of all commits. Measures organizational diversity.",
			MetricType: "factor",
		},
	}
}

// Compute walks the ranked entries accumulating counts until the running
// sum covers at least half of the total. Returns 0 for an empty ledger.
func (m *ShareFactorMetric) Compute(ranked []ledger.Entry) int {
	total := 0
	for _, e := range ranked {
		total += e.Count
	}

	if total == 0 {
		return 0
	}

	acc := 0

	for i, e := range ranked {
		acc += e.Count

		// acc >= ceil(total/2) without floating point.
		if acc*2 >= total {
			return i + 1
		}
	}

	return len(ranked)
}

// DeveloperCategoriesMetric assigns contributors to core/regular/casual
// tiers by cumulative commit share in ranked order.
type DeveloperCategoriesMetric struct {
	metrics.MetricMeta
}

// NewDeveloperCategoriesMetric creates the contributor tier metric.
func NewDeveloperCategoriesMetric() *DeveloperCategoriesMetric {
	return &DeveloperCategoriesMetric{
		MetricMeta: metrics.MetricMeta{
			MetricName:        "developer_categories",
			MetricDisplayName: "Developer Categories",
			MetricDescription: "Contributor engagement tiers by cumulative commit share when ranked " +
				"by commit count: core within 80%, regular within 95%, casual otherwise. " +
				"Tier counts always sum to the contributor count.",
			MetricType: "distribution",
		},
	}
}

// Compute assigns each ranked contributor a tier from the cumulative
// share after including that contributor. All tiers are zero for an
// empty ledger.
func (m *DeveloperCategoriesMetric) Compute(ranked []ledger.Entry) CategoryCounts {
	total := 0
	for _, e := range ranked {
		total += e.Count
	}

	var counts CategoryCounts

	if total == 0 {
		return counts
	}

	acc := 0

	for _, e := range ranked {
		acc += e.Count
		share := float64(acc) / float64(total)

		switch {
		case share <= coreShareThreshold:
			counts.Core++
		case share <= regularShareThreshold:
			counts.Regular++
		default:
			counts.Casual++
		}
	}

	return counts
}

// MessageSizeMetric computes total, average, and median over the
// accumulated commit-message lengths.
type MessageSizeMetric struct {
	metrics.MetricMeta
}

// NewMessageSizeMetric creates the message size metric.
func NewMessageSizeMetric() *MessageSizeMetric {
	return &MessageSizeMetric{
		MetricMeta: metrics.MetricMeta{
			MetricName:        "message_size_metrics",
			MetricDisplayName: "Message Size",
			MetricDescription: "Total, average, and median commit-message length in characters. " +
				"The median of an even-length sequence is the mean of the two middle values.",
			MetricType: "aggregate",
		},
	}
}

// Compute returns all-zero statistics for an empty sequence.
func (m *MessageSizeMetric) Compute(lengths []int) MessageSize {
	if len(lengths) == 0 {
		return MessageSize{}
	}

	total := 0
	for _, l := range lengths {
		total += l
	}

	return MessageSize{
		Total:   total,
		Average: float64(total) / float64(len(lengths)),
		Median:  median(lengths),
	}
}

// median returns the middle value of the sorted sequence; for an even
// count, the mean of the two middle values.
func median(lengths []int) float64 {
	sorted := make([]int, len(lengths))
	copy(sorted, lengths)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}

	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// --- Query surface ---

// CommitCount returns the total commits ingested so far.
func (a *Analyzer) CommitCount() int {
	return a.commits
}

// ContributorCount returns the number of distinct contributor identities.
func (a *Analyzer) ContributorCount() int {
	return a.authors.DistinctCount()
}

// PonyFactor returns the developer-diversity factor, 0 when no commits
// were processed.
func (a *Analyzer) PonyFactor() int {
	return NewPonyFactorMetric().Compute(a.authors.RankedByCount())
}

// ElephantFactor returns the organizational-diversity factor, 0 when no
// commits were processed.
func (a *Analyzer) ElephantFactor() int {
	return NewElephantFactorMetric().Compute(a.orgs.RankedByCount())
}

// DeveloperCategories returns contributor counts per engagement tier,
// all zero when no commits were processed.
func (a *Analyzer) DeveloperCategories() CategoryCounts {
	return NewDeveloperCategoriesMetric().Compute(a.authors.RankedByCount())
}

// FileTypeMetrics returns the cumulative change count per file category.
// The mapping is empty when no commits were processed.
func (a *Analyzer) FileTypeMetrics() map[string]int {
	out := make(map[string]int, len(a.fileTypes))

	for cat, n := range a.fileTypes {
		out[cat] = n
	}

	return out
}

// LanguageMetrics returns cumulative added/removed lines per detected
// language.
func (a *Analyzer) LanguageMetrics() map[string]LineStats {
	out := make(map[string]LineStats, len(a.languages))

	for lang, ls := range a.languages {
		out[lang] = ls
	}

	return out
}

// CommitSizeMetrics returns cumulative added and removed line totals,
// both zero when no commits were processed.
func (a *Analyzer) CommitSizeMetrics() CommitSize {
	return CommitSize{AddedLines: a.addedLines, RemovedLines: a.removedLines}
}

// MessageSizeMetrics returns message-length statistics, all zero when no
// commits were processed.
func (a *Analyzer) MessageSizeMetrics() MessageSize {
	return NewMessageSizeMetric().Compute(a.messageLengths)
}

// AverageCommitsWeek approximates cadence as commits/daysInterval/7,
// assuming uniform distribution of all known commits over the supplied
// window. A non-positive window returns ErrInvalidDaysInterval.
func (a *Analyzer) AverageCommitsWeek(daysInterval int) (float64, error) {
	if daysInterval <= 0 {
		return 0, ErrInvalidDaysInterval
	}

	return float64(a.commits) / float64(daysInterval) / daysPerWeek, nil
}

// TopContributors returns the n highest-ranked contributor entries.
func (a *Analyzer) TopContributors(n int) []ledger.Entry {
	return topEntries(a.authors.RankedByCount(), n)
}

// TopOrganizations returns the n highest-ranked organization entries.
func (a *Analyzer) TopOrganizations(n int) []ledger.Entry {
	return topEntries(a.orgs.RankedByCount(), n)
}

func topEntries(ranked []ledger.Entry, n int) []ledger.Entry {
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}

	return ranked
}

// Catalog returns the metadata registry for every derived metric the
// engine answers.
func Catalog() *metrics.Registry {
	registry := metrics.NewRegistry()

	registry.Register(NewPonyFactorMetric().MetricMeta)
	registry.Register(NewElephantFactorMetric().MetricMeta)
	registry.Register(NewDeveloperCategoriesMetric().MetricMeta)
	registry.Register(NewMessageSizeMetric().MetricMeta)
	registry.Register(metrics.MetricMeta{
		MetricName:        "commit_count",
		MetricDisplayName: "Commit Count",
		MetricDescription: "Total commit events accepted so far.",
		MetricType:        "aggregate",
	})
	registry.Register(metrics.MetricMeta{
		MetricName:        "contributor_count",
		MetricDisplayName: "Contributor Count",
		MetricDescription: "Distinct contributor identities (exact author string, no alias merging).",
		MetricType:        "aggregate",
	})
	registry.Register(metrics.MetricMeta{
		MetricName:        "file_type_metrics",
		MetricDisplayName: "File Types",
		MetricDescription: "Cumulative changed-file count per coarse category (Code or Other).",
		MetricType:        "distribution",
	})
	registry.Register(metrics.MetricMeta{
		MetricName:        "commit_size_metrics",
		MetricDisplayName: "Commit Size",
		MetricDescription: "Cumulative added and removed line totals across all accepted commits.",
		MetricType:        "aggregate",
	})
	registry.Register(metrics.MetricMeta{
		MetricName:        "average_commits_week",
		MetricDisplayName: "Weekly Cadence",
		MetricDescription: "Commits per week assuming uniform distribution over a caller-supplied " +
			"window of days. Does not read event timestamps.",
		MetricType: "aggregate",
	})

	return registry
}
