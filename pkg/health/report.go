package health

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/trustfang/pkg/ledger"
)

// reportTopN bounds the contributor/organization lists carried by a report.
const reportTopN = 10

// Report is a serializable aggregate of every derived-metric query,
// computed once against the engine's current state.
type Report struct {
	CommitCount      int                  `json:"commit_count"         yaml:"commit_count"`
	ContributorCount int                  `json:"contributor_count"    yaml:"contributor_count"`
	SkippedEvents    int                  `json:"skipped_events"       yaml:"skipped_events"`
	PonyFactor       int                  `json:"pony_factor"          yaml:"pony_factor"`
	ElephantFactor   int                  `json:"elephant_factor"      yaml:"elephant_factor"`
	Categories       CategoryCounts       `json:"developer_categories" yaml:"developer_categories"`
	FileTypes        map[string]int       `json:"file_type_metrics"    yaml:"file_type_metrics"`
	CommitSize       CommitSize           `json:"commit_size_metrics"  yaml:"commit_size_metrics"`
	MessageSize      MessageSize          `json:"message_size_metrics" yaml:"message_size_metrics"`
	DaysInterval     int                  `json:"days_interval"        yaml:"days_interval"`
	AvgCommitsWeek   float64              `json:"average_commits_week" yaml:"average_commits_week"`
	TopContributors  []ledger.Entry       `json:"top_contributors"     yaml:"top_contributors"`
	TopOrganizations []ledger.Entry       `json:"top_organizations"    yaml:"top_organizations"`
	Languages        map[string]LineStats `json:"languages"            yaml:"languages"`
}

// BuildReport runs every query against the engine's current state.
// daysInterval is the caller-supplied cadence window; it must be positive.
func BuildReport(a *Analyzer, daysInterval int) (*Report, error) {
	cadence, err := a.AverageCommitsWeek(daysInterval)
	if err != nil {
		return nil, err
	}

	return &Report{
		CommitCount:      a.CommitCount(),
		ContributorCount: a.ContributorCount(),
		SkippedEvents:    a.SkippedEvents(),
		PonyFactor:       a.PonyFactor(),
		ElephantFactor:   a.ElephantFactor(),
		Categories:       a.DeveloperCategories(),
		FileTypes:        a.FileTypeMetrics(),
		CommitSize:       a.CommitSizeMetrics(),
		MessageSize:      a.MessageSizeMetrics(),
		DaysInterval:     daysInterval,
		AvgCommitsWeek:   cadence,
		TopContributors:  a.TopContributors(reportTopN),
		TopOrganizations: a.TopOrganizations(reportTopN),
		Languages:        a.LanguageMetrics(),
	}, nil
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(r)
	if err != nil {
		return fmt.Errorf("encode report json: %w", err)
	}

	return nil
}

// WriteYAML writes the report as YAML.
func (r *Report) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)

	err := enc.Encode(r)
	if err != nil {
		return fmt.Errorf("encode report yaml: %w", err)
	}

	return enc.Close()
}
