package events

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// authorPattern matches the "Name <email>" author signature format.
var authorPattern = regexp.MustCompile(`^(.*\S)\s*<(.+)>$`)

// CommitRecord is one accepted commit event in typed form.
type CommitRecord struct {
	// Identity is the literal author string ("Name <email>"),
	// case-sensitive. Two emails for the same human are two identities.
	Identity string
	// Organization is the lower-cased domain of the author email.
	Organization string
	// MessageLength is the message size in Unicode code points,
	// whitespace included.
	MessageLength int
	// Files are the classified file changes of the commit.
	Files []FileChange
}

// FileChange is one classified changed file of a commit.
type FileChange struct {
	Path     string
	Category Category
	Language string
	Added    int
	Removed  int
}

// ParseCommit converts a commit event envelope into a typed commit record.
// It returns a validation error when the author field does not match the
// "Name <email>" pattern or the email carries no domain; callers skip the
// offending event and continue with the rest of the batch.
func ParseCommit(env Envelope) (*CommitRecord, error) {
	org, err := organizationFromAuthor(env.Data.Author)
	if err != nil {
		return nil, err
	}

	record := &CommitRecord{
		Identity:      env.Data.Author,
		Organization:  org,
		MessageLength: utf8.RuneCountInString(env.Data.Message),
		Files:         make([]FileChange, 0, len(env.Data.Files)),
	}

	for _, f := range env.Data.Files {
		record.Files = append(record.Files, FileChange{
			Path:     f.Path,
			Category: Classify(f.Path),
			Language: Language(f.Path),
			Added:    int(f.Added),
			Removed:  int(f.Removed),
		})
	}

	return record, nil
}

// organizationFromAuthor extracts the lower-cased email domain from a
// "Name <email>" author signature.
func organizationFromAuthor(author string) (string, error) {
	match := authorPattern.FindStringSubmatch(author)
	if match == nil {
		return "", fmt.Errorf("%w: %q", ErrMalformedAuthor, author)
	}

	email := match[2]

	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return "", fmt.Errorf("%w: %q", ErrMissingDomain, author)
	}

	return strings.ToLower(email[at+1:]), nil
}
