package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyAlice = "Alice <alice@example.com>"
	testKeyBob   = "Bob <bob@example.com>"
	testKeyCarol = "Carol <carol@example.org>"
)

func TestLedger_Empty(t *testing.T) {
	t.Parallel()

	l := New()

	assert.Zero(t, l.DistinctCount())
	assert.Zero(t, l.Sum())
	assert.Empty(t, l.RankedByCount())
}

func TestLedger_RecordCreatesOnFirstSight(t *testing.T) {
	t.Parallel()

	l := New()
	l.Record(testKeyAlice)
	l.Record(testKeyAlice)
	l.Record(testKeyBob)

	assert.Equal(t, 2, l.DistinctCount())
	assert.Equal(t, 3, l.Sum())
}

func TestLedger_RankedByCount_Descending(t *testing.T) {
	t.Parallel()

	l := New()
	l.Record(testKeyBob)

	for range 3 {
		l.Record(testKeyAlice)
	}

	for range 2 {
		l.Record(testKeyCarol)
	}

	ranked := l.RankedByCount()

	require.Len(t, ranked, 3)
	assert.Equal(t, Entry{Key: testKeyAlice, Count: 3}, ranked[0])
	assert.Equal(t, Entry{Key: testKeyCarol, Count: 2}, ranked[1])
	assert.Equal(t, Entry{Key: testKeyBob, Count: 1}, ranked[2])
}

func TestLedger_RankedByCount_TiesKeepFirstSeenOrder(t *testing.T) {
	t.Parallel()

	l := New()
	l.Record(testKeyCarol)
	l.Record(testKeyAlice)
	l.Record(testKeyBob)

	ranked := l.RankedByCount()

	require.Len(t, ranked, 3)
	assert.Equal(t, testKeyCarol, ranked[0].Key)
	assert.Equal(t, testKeyAlice, ranked[1].Key)
	assert.Equal(t, testKeyBob, ranked[2].Key)
}

func TestLedger_Entries_FirstSeenOrder(t *testing.T) {
	t.Parallel()

	l := New()
	l.Record(testKeyBob)
	l.Record(testKeyAlice)
	l.Record(testKeyBob)

	entries := l.Entries()

	require.Len(t, entries, 2)
	assert.Equal(t, Entry{Key: testKeyBob, Count: 2}, entries[0])
	assert.Equal(t, Entry{Key: testKeyAlice, Count: 1}, entries[1])
}

func TestLedger_Add_RestoresCounts(t *testing.T) {
	t.Parallel()

	l := New()
	l.Add(testKeyAlice, 5)
	l.Add(testKeyBob, 2)
	l.Add(testKeyAlice, 1)

	assert.Equal(t, 2, l.DistinctCount())
	assert.Equal(t, 8, l.Sum())
	assert.Equal(t, Entry{Key: testKeyAlice, Count: 6}, l.RankedByCount()[0])
}
