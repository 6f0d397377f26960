package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/panoptikon-app/panoptikon/internal/pathfs"
)

// SuffixIndex accelerates contains() queries on basenames by keeping a
// sorted list of every suffix of every basename (suffix-array style) so a
// substring search becomes a binary-search range instead of a full table
// scan. Chosen over a trigram table because it needs no extra library,
// fits inside the existing writer-batch transaction boundary, and the
// catalog's covering B-tree indexes already meet the prefix/exact-match
// latency budget; the suffix array only has to carry contains().
type SuffixIndex struct {
	mu      sync.RWMutex
	entries []suffixEntry // sorted by suffix
}

type suffixEntry struct {
	suffix string // one suffix of a basename's normalized form
	fileID int64
}

// NewSuffixIndex returns an empty index.
func NewSuffixIndex() *SuffixIndex {
	return &SuffixIndex{}
}

// Upsert replaces all suffix entries for fileID with the suffixes of
// normalizedName. Called once per touched row at writer-batch commit, so the
// index stays incrementally current rather than being rebuilt from scratch.
func (si *SuffixIndex) Upsert(fileID int64, normalizedName string) {
	si.mu.Lock()
	defer si.mu.Unlock()

	si.removeLocked(fileID)

	for _, suf := range suffixesOf(normalizedName) {
		si.insertSorted(suffixEntry{suffix: suf, fileID: fileID})
	}
}

// Remove drops every suffix entry for fileID, e.g. on file deletion.
func (si *SuffixIndex) Remove(fileID int64) {
	si.mu.Lock()
	defer si.mu.Unlock()

	si.removeLocked(fileID)
}

func (si *SuffixIndex) removeLocked(fileID int64) {
	filtered := si.entries[:0]

	for _, e := range si.entries {
		if e.fileID != fileID {
			filtered = append(filtered, e)
		}
	}

	si.entries = filtered
}

func (si *SuffixIndex) insertSorted(e suffixEntry) {
	idx := sort.Search(len(si.entries), func(i int) bool {
		return si.entries[i].suffix >= e.suffix
	})

	si.entries = append(si.entries, suffixEntry{})
	copy(si.entries[idx+1:], si.entries[idx:])
	si.entries[idx] = e
}

// Contains returns the distinct fileIDs whose basename contains substr.
// Entries hold normalized names and substr is matched as given, so callers
// pass an already-normalized substr (the planner applies pathfs.Normalize).
func (si *SuffixIndex) Contains(substr string) []int64 {
	si.mu.RLock()
	defer si.mu.RUnlock()

	if substr == "" {
		return nil
	}

	lo := sort.Search(len(si.entries), func(i int) bool {
		return si.entries[i].suffix >= substr
	})

	seen := make(map[int64]bool)

	var out []int64

	for i := lo; i < len(si.entries); i++ {
		if !strings.HasPrefix(si.entries[i].suffix, substr) {
			break
		}

		if !seen[si.entries[i].fileID] {
			seen[si.entries[i].fileID] = true
			out = append(out, si.entries[i].fileID)
		}
	}

	return out
}

// rebuildPageSize bounds how many rows RebuildSuffixIndex pages through
// the snapshot at a time.
const rebuildPageSize = 1000

// RebuildSuffixIndex repopulates suffix from every row currently in
// store, paging through a single read snapshot. The index itself is
// process-local memory only (deliberately: it's an accelerator, not a
// source of truth), so every fresh process — in particular each one-shot
// CLI invocation of `search` — needs this before running its first query
// against a catalog an earlier process already populated.
func RebuildSuffixIndex(ctx context.Context, store *Store, suffix *SuffixIndex) error {
	snap, err := store.BeginSnapshot(ctx)
	if err != nil {
		return err
	}
	defer snap.Close()

	offset := 0

	for {
		rows, err := snap.QueryFiles(ctx, "", nil, "id ASC", rebuildPageSize, offset)
		if err != nil {
			return err
		}

		if len(rows) == 0 {
			return nil
		}

		for _, r := range rows {
			suffix.Upsert(r.ID, pathfs.Normalize(r.Name))
		}

		offset += len(rows)
	}
}

// suffixesOf returns every suffix of s: a contains(substr) match is a
// prefix match on some suffix of s, which is what makes a sorted suffix
// list searchable by binary search.
func suffixesOf(s string) []string {
	out := make([]string, 0, len(s))

	for i := range s {
		out = append(out, s[i:])
	}

	return out
}
