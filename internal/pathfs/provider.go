package pathfs

import (
	"io/fs"
	"os"

	"github.com/panoptikon-app/panoptikon/internal/perror"
)

// DirEntry is the subset of fs.DirEntry the crawler consumes, re-exported
// so callers never need to import io/fs directly.
type DirEntry = fs.DirEntry

// FileInfo is the subset of fs.FileInfo the crawler consumes.
type FileInfo = fs.FileInfo

// Provider abstracts filesystem access behind three narrow operations.
// A sandboxed implementation can satisfy Provider without leaking macOS
// security-scoped bookmark plumbing into the crawler.
type Provider interface {
	// Open opens path for reading.
	Open(path string) (*os.File, error)
	// Stat returns file metadata for path without following a final symlink.
	Stat(path string) (FileInfo, error)
	// Enumerate lists the immediate children of a directory path.
	Enumerate(path string) ([]DirEntry, error)
}

// OSProvider is the default Provider, backed directly by the os package.
// It performs no sandboxing and is the only provider used outside the
// App Store-distributed build.
type OSProvider struct{}

// NewOSProvider returns the default unsandboxed Provider.
func NewOSProvider() *OSProvider {
	return &OSProvider{}
}

func (OSProvider) Open(path string) (*os.File, error) {
	return os.Open(path)
}

func (OSProvider) Stat(path string) (FileInfo, error) {
	return os.Lstat(path)
}

func (OSProvider) Enumerate(path string) ([]DirEntry, error) {
	return os.ReadDir(path)
}

// SandboxedProvider wraps a security-scoped bookmark for one root, the way
// a macOS App Sandbox build must re-resolve access on every launch. This is
// a stub: it records the bookmark and root but does not yet call into the
// Cocoa bookmark-resolution APIs (there is no cgo layer in this module).
// Every call reports CategoryPermissionBookmarkStale until a resolver is
// wired in, so callers already exercise the degraded-access error path.
type SandboxedProvider struct {
	root     string
	bookmark []byte
	resolved bool

	fallback *OSProvider
}

// NewSandboxedProvider creates a provider scoped to root, holding the given
// opaque bookmark data. resolved should be true once the caller has
// verified (out of band) that the bookmark still resolves to root.
func NewSandboxedProvider(root string, bookmark []byte, resolved bool) *SandboxedProvider {
	return &SandboxedProvider{
		root:     root,
		bookmark: bookmark,
		resolved: resolved,
		fallback: NewOSProvider(),
	}
}

func (p *SandboxedProvider) checkResolved(op string) error {
	if p.resolved {
		return nil
	}

	return perror.New(perror.CategoryPermissionBookmarkStale, op, "",
		"security-scoped bookmark for "+p.root+" is stale", nil)
}

func (p *SandboxedProvider) Open(path string) (*os.File, error) {
	if err := p.checkResolved("pathfs.SandboxedProvider.Open"); err != nil {
		return nil, err
	}

	return p.fallback.Open(path)
}

func (p *SandboxedProvider) Stat(path string) (FileInfo, error) {
	if err := p.checkResolved("pathfs.SandboxedProvider.Stat"); err != nil {
		return nil, err
	}

	return p.fallback.Stat(path)
}

func (p *SandboxedProvider) Enumerate(path string) ([]DirEntry, error) {
	if err := p.checkResolved("pathfs.SandboxedProvider.Enumerate"); err != nil {
		return nil, err
	}

	return p.fallback.Enumerate(path)
}
