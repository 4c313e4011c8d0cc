// Package events defines the commit event envelope produced by the
// analytics platform and the typed commit records derived from it.
//
// Raw envelopes never travel past this package: callers either get a
// validated CommitRecord or a per-event error.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EventTypeCommit is the envelope type tag for git commit events.
const EventTypeCommit = "org.grimoirelab.events.git.commit"

// Sentinel errors for envelope decoding and validation.
var (
	// ErrMalformedAuthor indicates the author field does not match the
	// "Name <email>" pattern.
	ErrMalformedAuthor = errors.New("events: malformed author field")
	// ErrMissingDomain indicates the author email has no domain part.
	ErrMissingDomain = errors.New("events: author email has no domain")
)

// Envelope is one raw event entry in an ingestion batch.
type Envelope struct {
	Type string     `json:"type"`
	Data CommitData `json:"data"`
}

// IsCommit reports whether the envelope carries a commit event.
// Envelopes with any other type tag pass through unconsumed.
func (e Envelope) IsCommit() bool {
	return e.Type == EventTypeCommit
}

// CommitData is the payload of a commit event envelope.
type CommitData struct {
	Author  string      `json:"Author"`
	Message string      `json:"message"`
	Files   []FileEntry `json:"files,omitempty"`
}

// FileEntry is one changed file in a commit event payload.
type FileEntry struct {
	Path    string    `json:"path"`
	Added   LineCount `json:"added"`
	Removed LineCount `json:"removed"`
}

// LineCount is a line counter that tolerates the platform's loose
// encoding: a JSON number, a numeric string, or "-" for binary files
// (treated as zero).
type LineCount int

// UnmarshalJSON decodes a number, a numeric string, or "-".
func (c *LineCount) UnmarshalJSON(data []byte) error {
	var n int

	numErr := json.Unmarshal(data, &n)
	if numErr == nil {
		*c = LineCount(n)

		return nil
	}

	var s string

	strErr := json.Unmarshal(data, &s)
	if strErr != nil {
		return fmt.Errorf("decode line count: %w", strErr)
	}

	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		*c = 0

		return nil
	}

	parsed, parseErr := strconv.Atoi(s)
	if parseErr != nil {
		return fmt.Errorf("decode line count %q: %w", s, parseErr)
	}

	*c = LineCount(parsed)

	return nil
}

// DecodeBatch decodes a JSON array of event envelopes.
func DecodeBatch(data []byte) ([]Envelope, error) {
	var batch []Envelope

	err := json.Unmarshal(data, &batch)
	if err != nil {
		return nil, fmt.Errorf("decode event batch: %w", err)
	}

	return batch, nil
}
