package health

import "github.com/Sumatoshi-tech/trustfang/pkg/ledger"

// Snapshot is the full serializable engine state. Ledger entries are kept
// in first-seen order so that restoring preserves deterministic ranking
// tie-breaks.
type Snapshot struct {
	Commits        int                  `json:"commit_count"`
	AddedLines     int                  `json:"added_lines"`
	RemovedLines   int                  `json:"removed_lines"`
	MessageLengths []int                `json:"message_lengths"`
	FileTypes      map[string]int       `json:"file_types"`
	Languages      map[string]LineStats `json:"languages"`
	Skipped        int                  `json:"skipped_events"`
	Authors        []ledger.Entry       `json:"authors"`
	Organizations  []ledger.Entry       `json:"organizations"`
}

// Snapshot captures the current engine state.
func (a *Analyzer) Snapshot() *Snapshot {
	snap := &Snapshot{
		Commits:        a.commits,
		AddedLines:     a.addedLines,
		RemovedLines:   a.removedLines,
		MessageLengths: append([]int(nil), a.messageLengths...),
		FileTypes:      make(map[string]int, len(a.fileTypes)),
		Languages:      make(map[string]LineStats, len(a.languages)),
		Skipped:        a.skipped,
		Authors:        a.authors.Entries(),
		Organizations:  a.orgs.Entries(),
	}

	for cat, n := range a.fileTypes {
		snap.FileTypes[cat] = n
	}

	for lang, ls := range a.languages {
		snap.Languages[lang] = ls
	}

	return snap
}

// Restore replaces the engine state with a previously captured snapshot.
// Subsequent ProcessEvents calls continue accumulating on top of it.
func (a *Analyzer) Restore(snap *Snapshot) {
	a.commits = snap.Commits
	a.addedLines = snap.AddedLines
	a.removedLines = snap.RemovedLines
	a.messageLengths = append([]int(nil), snap.MessageLengths...)
	a.skipped = snap.Skipped

	a.fileTypes = make(map[string]int, len(snap.FileTypes))
	for cat, n := range snap.FileTypes {
		a.fileTypes[cat] = n
	}

	a.languages = make(map[string]LineStats, len(snap.Languages))
	for lang, ls := range snap.Languages {
		a.languages[lang] = ls
	}

	a.authors = restoreLedger(snap.Authors)
	a.orgs = restoreLedger(snap.Organizations)
}

func restoreLedger(entries []ledger.Entry) *ledger.Ledger {
	l := ledger.New()

	for _, e := range entries {
		l.Add(e.Key, e.Count)
	}

	return l
}
