package health

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/trustfang/pkg/events"
	"github.com/Sumatoshi-tech/trustfang/pkg/ledger"
)

const (
	fixtureAuthor1 = "Author 1 <author1@example.com>"
	fixtureAuthor2 = "Author 2 <author2@example.net>"
	fixtureAuthor3 = "Author 3 <author3@example.org>"

	// Expected totals for the 9-commit fixture.
	fixtureCommits      = 9
	fixtureContributors = 3
	fixtureCodeFiles    = 54
	fixtureOtherFiles   = 24
	fixtureAddedLines   = 5352
	fixtureRemovedLines = 562
	fixtureMsgTotal     = 1891
	fixtureMsgMedian    = 229.0
)

func commitEvent(author, message string, files []events.FileEntry) events.Envelope {
	return events.Envelope{
		Type: events.EventTypeCommit,
		Data: events.CommitData{Author: author, Message: message, Files: files},
	}
}

// repeatCommits builds n identical minimal commit events for one author.
func repeatCommits(author string, n int) []events.Envelope {
	batch := make([]events.Envelope, 0, n)

	for range n {
		batch = append(batch, commitEvent(author, "Another commit", nil))
	}

	return batch
}

// fixtureEvents reproduces the canonical 9-commit, 3-contributor stream:
// 5 commits by author 1, 3 by author 2, 1 by author 3; 54 code and 24
// other file changes; 5352 added and 562 removed lines; message lengths
// totalling 1891 with median 229.
func fixtureEvents() []events.Envelope {
	authors := []string{
		fixtureAuthor1, fixtureAuthor2, fixtureAuthor1,
		fixtureAuthor3, fixtureAuthor1, fixtureAuthor2,
		fixtureAuthor1, fixtureAuthor2, fixtureAuthor1,
	}
	msgLens := []int{229, 100, 342, 200, 150, 240, 50, 280, 300}
	otherPerCommit := []int{3, 3, 3, 3, 3, 3, 2, 2, 2}

	const (
		codePerCommit   = 6
		codeFileAdded   = 99
		codeFileRemoved = 10
	)

	// Spread over the "Other" files: 6 single-line additions and 22
	// single-line removals.
	otherAdded, otherRemoved := 6, 22

	batch := make([]events.Envelope, 0, len(authors))

	for i, author := range authors {
		files := make([]events.FileEntry, 0, codePerCommit+otherPerCommit[i])

		for j := range codePerCommit {
			files = append(files, events.FileEntry{
				Path:    fmt.Sprintf("pkg/mod%d/file%d.go", i, j),
				Added:   codeFileAdded,
				Removed: codeFileRemoved,
			})
		}

		for j := range otherPerCommit[i] {
			fe := events.FileEntry{Path: fmt.Sprintf("docs/page%d_%d.md", i, j)}

			if otherAdded > 0 {
				fe.Added = 1
				otherAdded--
			}

			if otherRemoved > 0 {
				fe.Removed = 1
				otherRemoved--
			}

			files = append(files, fe)
		}

		batch = append(batch, commitEvent(author, strings.Repeat("m", msgLens[i]), files))
	}

	return batch
}

func TestAnalyzer_CommitCount(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	a.ProcessEvents(fixtureEvents())

	assert.Equal(t, fixtureCommits, a.CommitCount())
}

func TestAnalyzer_ContributorCount(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	a.ProcessEvents(fixtureEvents())

	assert.Equal(t, fixtureContributors, a.ContributorCount())

	a.ProcessEvents(repeatCommits("Author 1 <author1@example2.com>", 1))

	assert.Equal(t, 4, a.ContributorCount())
}

func TestAnalyzer_PonyFactor(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	assert.Zero(t, a.PonyFactor())

	a.ProcessEvents(fixtureEvents())
	assert.Equal(t, 1, a.PonyFactor())

	// Three commits from a fresh identity push the factor to two.
	a.ProcessEvents(repeatCommits("Author 1 <author1@example2.com>", 3))
	assert.Equal(t, 2, a.PonyFactor())
}

func TestAnalyzer_ElephantFactor(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	assert.Zero(t, a.ElephantFactor())

	a.ProcessEvents(fixtureEvents())
	assert.Equal(t, 1, a.ElephantFactor())

	// Five commits from a fresh organization push the factor to two.
	a.ProcessEvents(repeatCommits("Author 1 <author1@example2.com>", 5))
	assert.Equal(t, 2, a.ElephantFactor())
}

func TestAnalyzer_FileTypeMetrics(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	assert.Empty(t, a.FileTypeMetrics())

	a.ProcessEvents(fixtureEvents())

	fileTypes := a.FileTypeMetrics()

	assert.Equal(t, fixtureCodeFiles, fileTypes["Code"])
	assert.Equal(t, fixtureOtherFiles, fileTypes["Other"])
}

func TestAnalyzer_CommitSizeMetrics(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	assert.Equal(t, CommitSize{}, a.CommitSizeMetrics())

	a.ProcessEvents(fixtureEvents())

	size := a.CommitSizeMetrics()

	assert.Equal(t, fixtureAddedLines, size.AddedLines)
	assert.Equal(t, fixtureRemovedLines, size.RemovedLines)
}

func TestAnalyzer_MessageSizeMetrics(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	assert.Equal(t, MessageSize{}, a.MessageSizeMetrics())

	a.ProcessEvents(fixtureEvents())

	msg := a.MessageSizeMetrics()

	assert.Equal(t, fixtureMsgTotal, msg.Total)
	assert.InDelta(t, 210.11, msg.Average, 0.1)
	assert.InDelta(t, fixtureMsgMedian, msg.Median, 0.0001)
}

func TestAnalyzer_AverageCommitsWeek(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	a.ProcessEvents(fixtureEvents())

	avg, err := a.AverageCommitsWeek(30)

	require.NoError(t, err)
	assert.InDelta(t, 9.0/30.0/7.0, avg, 0.0001)
}

func TestAnalyzer_AverageCommitsWeek_InvalidInterval(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	_, err := a.AverageCommitsWeek(0)
	require.ErrorIs(t, err, ErrInvalidDaysInterval)

	_, err = a.AverageCommitsWeek(-3)
	require.ErrorIs(t, err, ErrInvalidDaysInterval)
}

func TestAnalyzer_DeveloperCategories(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	assert.Equal(t, CategoryCounts{}, a.DeveloperCategories())

	a.ProcessEvents(fixtureEvents())
	assert.Equal(t, CategoryCounts{Core: 1, Regular: 1, Casual: 1}, a.DeveloperCategories())

	// A second heavy contributor grows the core tier.
	a.ProcessEvents(repeatCommits("Author 1 <author1@example_new.com>", 4))
	assert.Equal(t, CategoryCounts{Core: 2, Regular: 1, Casual: 1}, a.DeveloperCategories())
}

func TestAnalyzer_CategoriesSumToContributorCount(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	a.ProcessEvents(fixtureEvents())
	a.ProcessEvents(repeatCommits("Author 1 <author1@example2.com>", 2))

	counts := a.DeveloperCategories()

	assert.Equal(t, a.ContributorCount(), counts.Core+counts.Regular+counts.Casual)
}

func TestAnalyzer_LedgersAgreeOnGrandTotal(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	a.ProcessEvents(fixtureEvents())
	a.ProcessEvents(repeatCommits("Author 1 <author1@example2.com>", 3))

	snap := a.Snapshot()

	assert.Equal(t, a.CommitCount(), sumEntries(snap.Authors))
	assert.Equal(t, a.CommitCount(), sumEntries(snap.Organizations))
}

func TestAnalyzer_QueriesArePureReads(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	a.ProcessEvents(fixtureEvents())

	first := a.PonyFactor()
	second := a.PonyFactor()

	assert.Equal(t, first, second)
	assert.Equal(t, a.DeveloperCategories(), a.DeveloperCategories())
	assert.Equal(t, a.FileTypeMetrics(), a.FileTypeMetrics())
	assert.Equal(t, fixtureCommits, a.CommitCount())
}

func TestAnalyzer_CommitCountMonotonic(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	previous := a.CommitCount()

	for range 3 {
		a.ProcessEvents(fixtureEvents())

		current := a.CommitCount()

		assert.GreaterOrEqual(t, current, previous)
		previous = current
	}
}

func TestAnalyzer_SkipsMalformedAuthor(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	batch := []events.Envelope{
		commitEvent("no angle brackets", "bad", nil),
		commitEvent(fixtureAuthor1, "good", nil),
		commitEvent("Author 1 <nodomain>", "bad too", nil),
	}

	a.ProcessEvents(batch)

	assert.Equal(t, 1, a.CommitCount())
	assert.Equal(t, 2, a.SkippedEvents())
}

func TestAnalyzer_AddSkippedEvents(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	a.AddSkippedEvents(2)
	a.AddSkippedEvents(0)
	a.AddSkippedEvents(-3)

	assert.Equal(t, 2, a.SkippedEvents())

	a.ProcessEvents([]events.Envelope{commitEvent("no angle brackets", "bad", nil)})

	assert.Equal(t, 3, a.SkippedEvents())
}

func TestAnalyzer_IgnoresNonCommitEvents(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()

	batch := []events.Envelope{
		{Type: "org.grimoirelab.events.git.branch", Data: events.CommitData{Author: "not parsed"}},
		commitEvent(fixtureAuthor1, "ok", nil),
	}

	a.ProcessEvents(batch)

	assert.Equal(t, 1, a.CommitCount())
	assert.Zero(t, a.SkippedEvents())
}

func TestAnalyzer_IdentitiesAreExact(t *testing.T) {
	t.Parallel()

	a := NewAnalyzer()
	a.ProcessEvents([]events.Envelope{
		commitEvent("Author 1 <author1@example.com>", "m", nil),
		commitEvent("Author 1 <AUTHOR1@example.com>", "m", nil),
	})

	// Same human, different author strings: two contributors, one org.
	assert.Equal(t, 2, a.ContributorCount())

	snap := a.Snapshot()
	assert.Len(t, snap.Organizations, 1)
}

func sumEntries(entries []ledger.Entry) int {
	total := 0

	for _, e := range entries {
		total += e.Count
	}

	return total
}
