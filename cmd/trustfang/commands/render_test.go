package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/trustfang/pkg/health"
)

func sampleReport() *health.Report {
	return &health.Report{
		CommitCount:      9,
		ContributorCount: 3,
		PonyFactor:       1,
		ElephantFactor:   1,
		Categories:       health.CategoryCounts{Core: 1, Regular: 1, Casual: 1},
		FileTypes:        map[string]int{"Code": 54, "Other": 24},
		DaysInterval:     30,
	}
}

func TestRenderReport_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format string
		marker string
	}{
		{format: "text", marker: "Project Health"},
		{format: "json", marker: `"commit_count": 9`},
		{format: "yaml", marker: "commit_count: 9"},
		{format: "html", marker: "<html"},
	}

	for _, tc := range tests {
		t.Run(tc.format, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			require.NoError(t, renderReport(sampleReport(), tc.format, true, &buf))
			assert.Contains(t, buf.String(), tc.marker)
		})
	}
}

func TestRenderReport_UnknownFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	err := renderReport(sampleReport(), "pdf", true, &buf)

	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Zero(t, buf.Len())
}
