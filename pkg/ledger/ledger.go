// Package ledger maintains running commit counts keyed by contributor
// identity or organization, with deterministic ranked queries.
package ledger

import "sort"

// Entry is a single (key, count) pair from a ledger.
type Entry struct {
	Key   string `json:"key"   yaml:"key"`
	Count int    `json:"count" yaml:"count"`
}

// Ledger counts occurrences per key and remembers first-seen order so that
// ranked queries break count ties deterministically across runs.
type Ledger struct {
	counts map[string]int
	order  []string
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{counts: make(map[string]int)}
}

// Record increments the counter for key, creating it on first sight.
func (l *Ledger) Record(key string) {
	_, seen := l.counts[key]
	if !seen {
		l.order = append(l.order, key)
	}

	l.counts[key]++
}

// Add increments the counter for key by n, creating it on first sight.
// Used when restoring a ledger from a snapshot.
func (l *Ledger) Add(key string, n int) {
	_, seen := l.counts[key]
	if !seen {
		l.order = append(l.order, key)
	}

	l.counts[key] += n
}

// RankedByCount returns all entries sorted by descending count.
// Ties keep first-seen insertion order (stable sort over the insertion
// snapshot), so repeated runs on identical input rank identically.
func (l *Ledger) RankedByCount() []Entry {
	entries := make([]Entry, 0, len(l.order))

	for _, key := range l.order {
		entries = append(entries, Entry{Key: key, Count: l.counts[key]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})

	return entries
}

// Entries returns all entries in first-seen order.
func (l *Ledger) Entries() []Entry {
	entries := make([]Entry, 0, len(l.order))

	for _, key := range l.order {
		entries = append(entries, Entry{Key: key, Count: l.counts[key]})
	}

	return entries
}

// DistinctCount returns the number of distinct keys.
func (l *Ledger) DistinctCount() int {
	return len(l.counts)
}

// Sum returns the total of all counters.
func (l *Ledger) Sum() int {
	total := 0

	for _, c := range l.counts {
		total += c
	}

	return total
}
