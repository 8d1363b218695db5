// Package cache persists the skill index and skill bodies under a cache
// root directory.
//
// Layout on disk:
//
//	<cache_dir>/index.json          index plus its fetched_at timestamp
//	<cache_dir>/bodies/<id>.<hash>.txt   body keyed by skill id and hash
//
// Entries carry TTL-based freshness but are never auto-deleted: an expired
// entry is reported as stale and kept until overwritten, so it can serve as
// the offline fallback. All writes are atomic (temp + rename); concurrent
// router processes may race and the last writer wins.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"skillrouter/internal/fs"
	"skillrouter/internal/index"
	"skillrouter/internal/registry"
)

// ErrCorrupt marks an unreadable or invalid cache entry. Callers proceed as
// if the entry were missing; the file is replaced on the next put.
var ErrCorrupt = errors.New("cache: corrupt entry")

const (
	indexFileName = "index.json"
	bodiesDirName = "bodies"

	dirPerm  = 0o755
	filePerm = 0o644
)

// Freshness classifies a cache lookup result.
type Freshness int

const (
	// Missing means no usable entry exists.
	Missing Freshness = iota
	// Stale means an entry exists but its TTL has lapsed.
	Stale
	// Fresh means an entry exists and is within its TTL.
	Fresh
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "missing"
	}
}

// Store is a disk-backed cache for one index entry and per-skill bodies.
type Store struct {
	dir      string
	indexTTL time.Duration
	bodyTTL  time.Duration
	fs       fs.FS
	now      func() time.Time
}

// NewStore returns a Store rooted at dir. The directory is created lazily
// on the first put.
func NewStore(dir string, indexTTL, bodyTTL time.Duration) *Store {
	return &Store{
		dir:      dir,
		indexTTL: indexTTL,
		bodyTTL:  bodyTTL,
		fs:       fs.NewReal(),
		now:      time.Now,
	}
}

// indexEnvelope is the serialized form of the index cache entry. The
// timestamp is an integer so the format round-trips exactly.
type indexEnvelope struct {
	FetchedAt int64       `json:"fetched_at"`
	Index     index.Index `json:"index"`
}

// GetIndex loads the cached index and reports its freshness.
//
// A missing file yields (zero, Missing, nil); an unreadable or invalid file
// yields (zero, Missing, err) with err wrapping ErrCorrupt.
func (s *Store) GetIndex() (index.Index, Freshness, error) {
	data, err := s.fs.ReadFile(s.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return index.Index{}, Missing, nil
		}

		return index.Index{}, Missing, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	var env indexEnvelope

	unmarshalErr := json.Unmarshal(data, &env)
	if unmarshalErr != nil {
		return index.Index{}, Missing, fmt.Errorf("%w: %w", ErrCorrupt, unmarshalErr)
	}

	if env.Index.Skills == nil {
		return index.Index{}, Missing, fmt.Errorf("%w: index entry has no skills", ErrCorrupt)
	}

	return env.Index, s.freshness(time.Unix(env.FetchedAt, 0), s.indexTTL), nil
}

// PutIndex stores idx with the current time as its fetched_at timestamp.
func (s *Store) PutIndex(idx index.Index) error {
	mkdirErr := s.fs.MkdirAll(s.dir, dirPerm)
	if mkdirErr != nil {
		return fmt.Errorf("creating cache dir: %w", mkdirErr)
	}

	env := indexEnvelope{FetchedAt: s.now().Unix(), Index: idx}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding index entry: %w", err)
	}

	writeErr := s.fs.WriteFileAtomic(s.indexPath(), data, filePerm)
	if writeErr != nil {
		return fmt.Errorf("writing index entry: %w", writeErr)
	}

	return nil
}

// GetBody loads the cached body for (id, expectedHash) and reports its
// freshness. The stored bytes are re-hashed on every read; a mismatch is
// treated as a corrupt entry and reported as missing.
func (s *Store) GetBody(id, expectedHash string) ([]byte, Freshness, error) {
	path := s.bodyPath(id, expectedHash)

	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Missing, nil
		}

		return nil, Missing, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	data, readErr := s.fs.ReadFile(path)
	if readErr != nil {
		return nil, Missing, fmt.Errorf("%w: %w", ErrCorrupt, readErr)
	}

	if registry.HashHex(data) != expectedHash {
		return nil, Missing, fmt.Errorf("%w: body %s fails integrity check", ErrCorrupt, id)
	}

	return data, s.freshness(info.ModTime(), s.bodyTTL), nil
}

// PutBody stores data under (id, hash) and removes superseded entries for
// the same id that carry a different hash.
func (s *Store) PutBody(id, hash string, data []byte) error {
	bodiesDir := filepath.Join(s.dir, bodiesDirName)

	mkdirErr := s.fs.MkdirAll(bodiesDir, dirPerm)
	if mkdirErr != nil {
		return fmt.Errorf("creating bodies dir: %w", mkdirErr)
	}

	writeErr := s.fs.WriteFileAtomic(s.bodyPath(id, hash), data, filePerm)
	if writeErr != nil {
		return fmt.Errorf("writing body %s: %w", id, writeErr)
	}

	s.removeSuperseded(bodiesDir, id, hash)

	return nil
}

// removeSuperseded deletes old-hash body files for id. Best effort: another
// process may have removed them already.
func (s *Store) removeSuperseded(bodiesDir, id, keepHash string) {
	entries, err := s.fs.ReadDir(bodiesDir)
	if err != nil {
		return
	}

	keep := id + "." + keepHash + ".txt"

	for _, entry := range entries {
		name := entry.Name()
		if name == keep || !strings.HasPrefix(name, id+".") || !strings.HasSuffix(name, ".txt") {
			continue
		}

		_ = s.fs.Remove(filepath.Join(bodiesDir, name))
	}
}

// Stats summarizes the cache contents for diagnostics.
type Stats struct {
	Dir            string   `json:"dir"`
	IndexCached    bool     `json:"index_cached"`
	IndexFetchedAt int64    `json:"index_fetched_at,omitempty"`
	IndexFreshness string   `json:"index_freshness"`
	IndexSkills    int      `json:"index_skills"`
	BodyCount      int      `json:"body_count"`
	BodyIDs        []string `json:"body_ids,omitempty"`
}

// CollectStats inspects the cache directory without mutating it.
func (s *Store) CollectStats() Stats {
	stats := Stats{Dir: s.dir, IndexFreshness: Missing.String()}

	data, err := s.fs.ReadFile(s.indexPath())
	if err == nil {
		var env indexEnvelope
		if json.Unmarshal(data, &env) == nil && env.Index.Skills != nil {
			stats.IndexCached = true
			stats.IndexFetchedAt = env.FetchedAt
			stats.IndexFreshness = s.freshness(time.Unix(env.FetchedAt, 0), s.indexTTL).String()
			stats.IndexSkills = len(env.Index.Skills)
		}
	}

	entries, err := s.fs.ReadDir(filepath.Join(s.dir, bodiesDirName))
	if err != nil {
		return stats
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".txt") {
			continue
		}

		id, _, ok := strings.Cut(strings.TrimSuffix(name, ".txt"), ".")
		if !ok {
			continue
		}

		stats.BodyCount++
		stats.BodyIDs = append(stats.BodyIDs, id)
	}

	sort.Strings(stats.BodyIDs)

	return stats
}

func (s *Store) freshness(fetchedAt time.Time, ttl time.Duration) Freshness {
	if s.now().Sub(fetchedAt) <= ttl {
		return Fresh
	}

	return Stale
}

func (s *Store) indexPath() string {
	return filepath.Join(s.dir, indexFileName)
}

func (s *Store) bodyPath(id, hash string) string {
	return filepath.Join(s.dir, bodiesDirName, id+"."+hash+".txt")
}
