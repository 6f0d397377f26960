// Package catalog implements the on-disk relational store of file records:
// schema, connection pool, prepared-statement cache, and the incremental
// suffix index that accelerates contains() queries.
package catalog

// CloudProvider classifies which cloud sync client, if any, owns a path.
type CloudProvider string

const (
	CloudProviderNone     CloudProvider = "none"
	CloudProviderICloud   CloudProvider = "icloud"
	CloudProviderDropbox  CloudProvider = "dropbox"
	CloudProviderGDrive   CloudProvider = "gdrive"
	CloudProviderOneDrive CloudProvider = "onedrive"
	CloudProviderBox      CloudProvider = "box"
)

// CloudStatus describes whether a cloud-backed file's content is present
// on local disk.
type CloudStatus string

const (
	CloudStatusLocal      CloudStatus = "local"
	CloudStatusOnlineOnly CloudStatus = "online_only"
	CloudStatusUnknown    CloudStatus = "unknown"
)

// Fingerprint identifies a file by its OS-level identity, used to detect
// renames instead of treating a move as a delete+create pair.
type Fingerprint struct {
	Inode  uint64
	Device uint64
}

// FileRecord is one catalog row: a file or directory observed by the
// indexer. path is unique and normalized before any lookup (invariant
// 3.2.1). ParentID is zero for declared roots.
type FileRecord struct {
	ID            int64
	Path          string
	Name          string
	Extension     string
	ParentID      int64
	HasParent     bool
	Size          int64
	HasSize       bool
	FolderSize    int64
	HasFolderSize bool
	CreatedAt     int64
	ModifiedAt    int64
	IsDirectory   bool
	CloudProvider CloudProvider
	CloudStatus   CloudStatus
	Fingerprint   Fingerprint
	Version       int64
	Stale         bool
}

// IndexRun is one indexing operation: append-only, resumable only as the
// most recent unfinished row.
type IndexRun struct {
	ID         int64
	StartedAt  int64
	FinishedAt int64
	HasFinish  bool
	Added      int64
	Modified   int64
	Deleted    int64
	Cursor     string
}
