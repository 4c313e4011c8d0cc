// Package checkpoint persists engine snapshots to disk so long analyses
// can resume instead of replaying the whole event stream. Snapshots are
// stored as LZ4-compressed JSON with a metadata sidecar that pins the
// format version, the event source, and a content checksum.
package checkpoint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/trustfang/pkg/health"
)

// MetadataVersion is the current checkpoint metadata format version.
const MetadataVersion = 1

// Sentinel errors for checkpoint validation.
var (
	ErrNoCheckpoint     = errors.New("no checkpoint found")
	ErrVersionMismatch  = errors.New("checkpoint version mismatch")
	ErrSourceMismatch   = errors.New("checkpoint source mismatch")
	ErrChecksumMismatch = errors.New("checkpoint checksum mismatch")
)

// File layout constants.
const (
	metadataFile = "checkpoint.json"
	snapshotFile = "snapshot.json.lz4"

	dirPerm  = 0o750
	filePerm = 0o600
)

// Metadata describes a stored snapshot.
type Metadata struct {
	Version   int       `json:"version"`
	Source    string    `json:"source"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultDir returns the default checkpoint directory (~/.trustfang/checkpoints).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return filepath.Join(home, ".trustfang", "checkpoints")
}

// SourceHash computes a short hash of the event source identifier for use
// as a directory name.
func SourceHash(source string) string {
	h := sha256.Sum256([]byte(source))

	return hex.EncodeToString(h[:8])
}

// Manager stores and retrieves at most one snapshot per event source.
type Manager struct {
	BaseDir string
	Source  string
}

// NewManager creates a checkpoint manager for one event source. The source
// is any stable identifier: a server URL, a repository path, a file path.
func NewManager(baseDir, source string) *Manager {
	return &Manager{BaseDir: baseDir, Source: source}
}

// CheckpointDir returns the directory holding this source's checkpoint.
func (m *Manager) CheckpointDir() string {
	return filepath.Join(m.BaseDir, SourceHash(m.Source))
}

// Exists reports whether a checkpoint is present for this source.
func (m *Manager) Exists() bool {
	_, err := os.Stat(filepath.Join(m.CheckpointDir(), metadataFile))

	return err == nil
}

// Clear removes the checkpoint for this source. Clearing a missing
// checkpoint is not an error.
func (m *Manager) Clear() error {
	cpDir := m.CheckpointDir()

	_, statErr := os.Stat(cpDir)
	if os.IsNotExist(statErr) {
		return nil
	}

	err := os.RemoveAll(cpDir)
	if err != nil {
		return fmt.Errorf("remove checkpoint dir: %w", err)
	}

	return nil
}

// Save persists the snapshot, replacing any previous checkpoint for this
// source. The snapshot file is written before the metadata so a crash
// mid-save never leaves metadata pointing at a missing snapshot.
func (m *Manager) Save(snap *health.Snapshot) error {
	cpDir := m.CheckpointDir()

	err := os.MkdirAll(cpDir, dirPerm)
	if err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	compressed, err := compressSnapshot(snap)
	if err != nil {
		return err
	}

	err = os.WriteFile(filepath.Join(cpDir, snapshotFile), compressed, filePerm)
	if err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	meta := Metadata{
		Version:   MetadataVersion,
		Source:    m.Source,
		Checksum:  checksum(compressed),
		CreatedAt: time.Now().UTC(),
	}

	encoded, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}

	err = os.WriteFile(filepath.Join(cpDir, metadataFile), encoded, filePerm)
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	return nil
}

// Load reads back the snapshot for this source, validating version, source,
// and checksum before decoding.
func (m *Manager) Load() (*health.Snapshot, error) {
	cpDir := m.CheckpointDir()

	encoded, err := os.ReadFile(filepath.Join(cpDir, metadataFile))
	if os.IsNotExist(err) {
		return nil, ErrNoCheckpoint
	} else if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta Metadata

	err = json.Unmarshal(encoded, &meta)
	if err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	if meta.Version != MetadataVersion {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrVersionMismatch, meta.Version, MetadataVersion)
	}

	if meta.Source != m.Source {
		return nil, fmt.Errorf("%w: checkpoint belongs to %q", ErrSourceMismatch, meta.Source)
	}

	compressed, err := os.ReadFile(filepath.Join(cpDir, snapshotFile))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if checksum(compressed) != meta.Checksum {
		return nil, ErrChecksumMismatch
	}

	return decompressSnapshot(compressed)
}

func compressSnapshot(snap *health.Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	var buf bytes.Buffer

	zw := lz4.NewWriter(&buf)

	_, err = zw.Write(raw)
	if err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}

	err = zw.Close()
	if err != nil {
		return nil, fmt.Errorf("flush compressed snapshot: %w", err)
	}

	return buf.Bytes(), nil
}

func decompressSnapshot(compressed []byte) (*health.Snapshot, error) {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(compressed)))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}

	var snap health.Snapshot

	err = json.Unmarshal(raw, &snap)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return &snap, nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)

	return hex.EncodeToString(h[:])
}
