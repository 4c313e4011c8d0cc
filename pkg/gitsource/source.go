// Package gitsource turns a local git repository into the same commit
// event stream a GrimoireLab server produces, so local analyses run
// through the identical ingestion path. It walks history oldest-first
// with libgit2 and derives per-file line counts from tree diffs.
package gitsource

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/trustfang/pkg/events"
)

// DefaultBatchSize is the number of commit events per handler call.
const DefaultBatchSize = 100

// Source reads commit events out of one local repository.
type Source struct {
	repoPath  string
	since     time.Time
	limit     int
	batchSize int
	logger    *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithSince skips commits committed before the given time.
func WithSince(since time.Time) Option {
	return func(s *Source) {
		s.since = since
	}
}

// WithLimit caps the number of commits read; zero means unlimited.
func WithLimit(limit int) Option {
	return func(s *Source) {
		s.limit = limit
	}
}

// WithBatchSize sets the number of events per handler call.
func WithBatchSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a source for the repository at repoPath.
func New(repoPath string, opts ...Option) *Source {
	s := &Source{
		repoPath:  repoPath,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Events walks the repository history oldest-first, skipping merge
// commits, and hands commit event batches to the handler. The walk stops
// early when the handler returns an error or the context is cancelled.
func (s *Source) Events(ctx context.Context, handler func([]events.Envelope) error) error {
	repo, err := git2go.OpenRepository(s.repoPath)
	if err != nil {
		return fmt.Errorf("open repository %s: %w", s.repoPath, err)
	}
	defer repo.Free()

	oids, err := s.collectCommits(repo)
	if err != nil {
		return err
	}

	s.logger.Debug("collected commits", slog.Int("count", len(oids)), slog.String("repo", s.repoPath))

	batch := make([]events.Envelope, 0, s.batchSize)

	for _, oid := range oids {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		env, err := s.commitEvent(repo, oid)
		if err != nil {
			s.logger.Warn("skipping unreadable commit",
				slog.String("oid", oid.String()), slog.Any("error", err))

			continue
		}

		batch = append(batch, env)

		if len(batch) == s.batchSize {
			err = handler(batch)
			if err != nil {
				return err
			}

			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		return handler(batch)
	}

	return nil
}

// collectCommits gathers non-merge commit ids oldest-first, applying the
// since and limit filters.
func (s *Source) collectCommits(repo *git2go.Repository) ([]*git2go.Oid, error) {
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	defer head.Free()

	walk, err := repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}
	defer walk.Free()

	err = walk.Push(head.Target())
	if err != nil {
		return nil, fmt.Errorf("push HEAD to revwalk: %w", err)
	}

	walk.Sorting(git2go.SortTime | git2go.SortReverse)

	var oids []*git2go.Oid

	err = walk.Iterate(func(commit *git2go.Commit) bool {
		defer commit.Free()

		if commit.ParentCount() > 1 {
			return true
		}

		if !s.since.IsZero() && commit.Committer().When.Before(s.since) {
			return true
		}

		if s.limit > 0 && len(oids) >= s.limit {
			return false
		}

		oids = append(oids, commit.Id())

		return true
	})
	if err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}

	return oids, nil
}

// commitEvent builds one commit event envelope from a repository commit.
func (s *Source) commitEvent(repo *git2go.Repository, oid *git2go.Oid) (events.Envelope, error) {
	commit, err := repo.LookupCommit(oid)
	if err != nil {
		return events.Envelope{}, fmt.Errorf("lookup commit: %w", err)
	}
	defer commit.Free()

	files, err := s.commitFiles(repo, commit)
	if err != nil {
		return events.Envelope{}, err
	}

	author := commit.Author()

	return events.Envelope{
		Type: events.EventTypeCommit,
		Data: events.CommitData{
			Author:  ComposeAuthor(author.Name, author.Email),
			Message: commit.Message(),
			Files:   files,
		},
	}, nil
}

// fileTally accumulates line counts for the file currently being diffed.
type fileTally struct {
	path    string
	added   int
	removed int
}

// commitFiles diffs the commit against its first parent (or the empty
// tree for the initial commit) and returns per-file line counts.
func (s *Source) commitFiles(repo *git2go.Repository, commit *git2go.Commit) ([]events.FileEntry, error) {
	currentTree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("resolve commit tree: %w", err)
	}
	defer currentTree.Free()

	parentTree, freeParent := parentTree(commit)
	defer freeParent()

	diffOpts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("create diff options: %w", err)
	}

	diff, err := repo.DiffTreeToTree(parentTree, currentTree, &diffOpts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	defer func() {
		if diff != nil {
			_ = diff.Free()
		}
	}()

	var (
		files   []events.FileEntry
		current *fileTally
	)

	flush := func() {
		if current == nil {
			return
		}

		files = append(files, events.FileEntry{
			Path:    current.path,
			Added:   events.LineCount(current.added),
			Removed: events.LineCount(current.removed),
		})
		current = nil
	}

	err = diff.ForEach(func(delta git2go.DiffDelta, _ float64) (git2go.DiffForEachHunkCallback, error) {
		flush()

		path := delta.NewFile.Path
		if path == "" {
			path = delta.OldFile.Path
		}

		current = &fileTally{path: path}

		return func(_ git2go.DiffHunk) (git2go.DiffForEachLineCallback, error) {
			return func(line git2go.DiffLine) error {
				tallyLine(line.Origin, current)

				return nil
			}, nil
		}, nil
	}, git2go.DiffDetailLines)
	if err != nil {
		return nil, fmt.Errorf("walk diff: %w", err)
	}

	flush()

	return files, nil
}

// parentTree returns the first-parent tree, or nil for the initial commit.
func parentTree(commit *git2go.Commit) (tree *git2go.Tree, cleanup func()) {
	if commit.ParentCount() == 0 {
		return nil, func() {}
	}

	parent := commit.Parent(0)
	if parent == nil {
		return nil, func() {}
	}

	pt, err := parent.Tree()
	parent.Free()

	if err != nil || pt == nil {
		return nil, func() {}
	}

	return pt, pt.Free
}

func tallyLine(origin git2go.DiffLineType, current *fileTally) {
	switch origin {
	case git2go.DiffLineAddition:
		current.added++
	case git2go.DiffLineDeletion:
		current.removed++
	case git2go.DiffLineContext, git2go.DiffLineContextEOFNL,
		git2go.DiffLineAddEOFNL, git2go.DiffLineDelEOFNL,
		git2go.DiffLineFileHdr, git2go.DiffLineHunkHdr, git2go.DiffLineBinary:
		// Context lines, EOF markers, and headers do not count.
	}
}

// ComposeAuthor formats a signature into the "Name <email>" author string
// the event envelope carries.
func ComposeAuthor(name, email string) string {
	return fmt.Sprintf("%s <%s>", name, email)
}
