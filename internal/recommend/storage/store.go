// Shopfeed - Personalized Product Feed Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopfeed

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when no artifact exists for a name or version.
var ErrNotFound = errors.New("artifact not found")

const artifactExt = ".gob.gz"

// Metadata describes a stored artifact.
type Metadata struct {
	// Name is the artifact kind (e.g. "snapshot").
	Name string `json:"name"`

	// Version is monotonically increasing per name.
	Version uint64 `json:"version"`

	BuiltAt time.Time `json:"built_at"`
	SavedAt time.Time `json:"saved_at"`

	EventCount   int `json:"event_count"`
	ItemCount    int `json:"item_count"`
	UserCount    int `json:"user_count"`
	ClusterCount int `json:"cluster_count"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`

	BuildDurationMS int64 `json:"build_duration_ms"`
}

// storedFile is the on-disk layout.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// Store persists versioned gob+gzip artifacts under a directory, one file
// per version: {name}_v{version}.gob.gz.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	versions map[string]uint64
}

// NewStore opens (creating if needed) an artifact directory and indexes the
// artifacts already in it.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]uint64),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing artifacts: %w", err)
	}
	return s, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.baseDir }

func (s *Store) scan() error {
	all, err := s.listVersions()
	if err != nil {
		return err
	}
	for name, versions := range all {
		s.versions[name] = slices.Max(versions)
	}
	return nil
}

// listVersions returns every version on disk grouped by name.
func (s *Store) listVersions() (map[string][]uint64, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]uint64)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}
		out[name] = append(out[name], version)
	}
	return out, nil
}

// parseFilename splits "snapshot_v12.gob.gz" into ("snapshot", 12).
func parseFilename(filename string) (string, uint64, bool) {
	base, ok := strings.CutSuffix(filename, artifactExt)
	if !ok {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.ParseUint(base[idx+2:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return base[:idx], version, true
}

// Save writes data as version of name. The file is written to a temporary
// path and renamed into place, so readers never observe a partial artifact.
//
//nolint:gocritic // meta passed by value is filled in and stored
func (s *Store) Save(ctx context.Context, name string, version uint64, data any, meta Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress artifact: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()
	meta.Name = name
	meta.Version = version

	tmp, err := os.CreateTemp(s.baseDir, "."+name+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // no-op after rename

	if err := gob.NewEncoder(tmp).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path(name, version)); err != nil {
		return fmt.Errorf("publish artifact: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return nil
}

// Load decodes version of name into target. Version 0 loads the latest.
// The checksum is verified before decoding.
func (s *Store) Load(ctx context.Context, name string, version uint64, target any) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		latest, ok := s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		version = latest
	}

	f, err := os.Open(s.path(name, version))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s v%d: %w", name, version, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress artifact: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // read-only

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed artifact: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &sf.Metadata, nil
}

// LatestVersion returns the newest version stored for name.
func (s *Store) LatestVersion(name string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[name]
	return v, ok
}

// List returns the metadata of the latest version of every artifact name.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Metadata
	for name, version := range s.versions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(s.path(name, version))
		if err != nil {
			continue
		}
		var sf storedFile
		err = gob.NewDecoder(f).Decode(&sf)
		_ = f.Close() //nolint:errcheck // read-only
		if err != nil {
			continue
		}
		out = append(out, sf.Metadata)
	}
	slices.SortFunc(out, func(a, b Metadata) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Delete removes one version. The latest version pointer falls back to the
// next newest on disk.
func (s *Store) Delete(ctx context.Context, name string, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name, version)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s v%d: %w", name, version, ErrNotFound)
		}
		return fmt.Errorf("delete artifact: %w", err)
	}
	if s.versions[name] != version {
		return nil
	}

	all, err := s.listVersions()
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	if versions := all[name]; len(versions) > 0 {
		s.versions[name] = slices.Max(versions)
	} else {
		delete(s.versions, name)
	}
	return nil
}

// DeleteAll removes every version of every artifact.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.listVersions()
	if err != nil {
		return 0, fmt.Errorf("read directory: %w", err)
	}
	removed := 0
	for name, versions := range all {
		for _, v := range versions {
			if err := os.Remove(s.path(name, v)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return removed, fmt.Errorf("delete artifact: %w", err)
			}
			removed++
		}
	}
	s.versions = make(map[string]uint64)
	return removed, nil
}

// Prune keeps only the newest keep versions of name.
func (s *Store) Prune(ctx context.Context, name string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}
	all, err := s.listVersions()
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	versions := all[name]
	if len(versions) <= keep {
		return nil
	}
	slices.Sort(versions)
	slices.Reverse(versions)
	for _, v := range versions[keep:] {
		_ = os.Remove(s.path(name, v)) //nolint:errcheck // best-effort cleanup of old versions
	}
	return nil
}

func (s *Store) path(name string, version uint64) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, artifactExt))
}
