// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/markerlab/markerlab/pkg/core"
)

// snapshotVersion is bumped when the snapshot layout changes.
const snapshotVersion = 1

// Snapshot is the on-disk form of a memory backend.
type Snapshot struct {
	Version        int                              `json:"version"`
	ShotBoundaries []core.ShotBoundary              `json:"shotBoundaries"`
	Rules          []core.DerivedMarkerConfig       `json:"rules"`
	Derivations    []core.MaterializedDerivation    `json:"derivations"`
	SlotSets       []core.SlotDefinitionSet         `json:"slotSets"`
	MarkerSlots    map[string][]core.SlotAssignment `json:"markerSlots"`
}

func (b *Backend) buildSnapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Snapshot{
		Version:     snapshotVersion,
		Derivations: append([]core.MaterializedDerivation(nil), b.derivations...),
		MarkerSlots: make(map[string][]core.SlotAssignment, len(b.markerSlots)),
	}
	for _, sb := range b.boundaries {
		s.ShotBoundaries = append(s.ShotBoundaries, sb)
	}
	for _, r := range b.rules {
		s.Rules = append(s.Rules, r)
	}
	for _, set := range b.slotSets {
		s.SlotSets = append(s.SlotSets, set)
	}
	for id, slots := range b.markerSlots {
		s.MarkerSlots[id] = slots
	}
	return s
}

func (b *Backend) restore(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sb := range s.ShotBoundaries {
		b.boundaries[sb.ID] = sb
	}
	for _, r := range s.Rules {
		b.rules[r.ID] = r
	}
	b.derivations = append(b.derivations, s.Derivations...)
	for _, set := range s.SlotSets {
		b.slotSets[set.TagID] = set
	}
	for id, slots := range s.MarkerSlots {
		b.markerSlots[id] = slots
	}
}

func compressed(path string) bool {
	return strings.HasSuffix(path, ".gz")
}

// save writes the snapshot, gzipped when the path ends in .gz.
func (b *Backend) save() error {
	if dir := filepath.Dir(b.snapshotPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}

	tmp := b.snapshotPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if compressed(b.snapshotPath) {
		gz = gzip.NewWriter(f)
		w = gz
	}

	encErr := json.NewEncoder(w).Encode(b.buildSnapshot())
	if gz != nil {
		if err := gz.Close(); err != nil && encErr == nil {
			encErr = err
		}
	}
	if err := f.Close(); err != nil && encErr == nil {
		encErr = err
	}
	if encErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write snapshot: %w", encErr)
	}
	return os.Rename(tmp, b.snapshotPath)
}

// load restores a snapshot. A missing file is not an error.
func (b *Backend) load() error {
	f, err := os.Open(b.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if compressed(b.snapshotPath) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("failed to open gzip snapshot: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return fmt.Errorf("unsupported snapshot version %d", s.Version)
	}
	b.restore(s)
	return nil
}
