package indexer

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/panoptikon-app/panoptikon/internal/pathfs"
)

// CrawlOptions configures a Crawler.
type CrawlOptions struct {
	Roots          []string
	Rules          *pathfs.CompiledRules
	MaxDepth       int // 0 = unbounded
	FollowSymlinks bool
	Provider       pathfs.Provider
	Logger         *slog.Logger
}

// Crawler performs a bounded-depth breadth-first traversal over the
// configured roots, respecting include/exclude rules and detecting
// symlink cycles via an (inode, device) visited set. Traversal covers
// multiple roots with an explicit frontier queue.
type Crawler struct {
	opts    CrawlOptions
	visited map[cycleKey]bool
}

type cycleKey struct {
	inode, device uint64
}

// frontierNode is one pending directory in the BFS queue.
type frontierNode struct {
	path  string
	depth int
}

// NewCrawler creates a Crawler with the given options.
func NewCrawler(opts CrawlOptions) *Crawler {
	if opts.Provider == nil {
		opts.Provider = pathfs.NewOSProvider()
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Crawler{opts: opts, visited: make(map[cycleKey]bool)}
}

// Walk performs a bounded-depth BFS over every configured root and sends
// each discovered entry to out. Walk closes out when done or ctx is
// canceled. onProgress is called after every directory is fully
// enumerated, reporting a running scanned count; a nil onProgress is
// fine.
func (c *Crawler) Walk(ctx context.Context, out chan<- ScanItem, onProgress func(scanned int64)) error {
	defer close(out)

	var scanned int64

	queue := make([]frontierNode, 0, len(c.opts.Roots))
	for _, root := range c.opts.Roots {
		abs, err := pathfs.Canonicalize(root)
		if err != nil {
			c.opts.Logger.Warn("crawler: could not canonicalize root, skipping", "root", root, "error", err)
			continue
		}

		queue = append(queue, frontierNode{path: abs, depth: 0})
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		node := queue[0]
		queue = queue[1:]

		children, err := c.enumerate(node)
		if err != nil {
			c.opts.Logger.Warn("crawler: enumerate failed", "path", node.path, "error", err)
			continue
		}

		for _, child := range children {
			select {
			case out <- child:
			case <-ctx.Done():
				return ctx.Err()
			}

			scanned++

			// Descend only if this directory's children stay within MaxDepth.
			if child.IsDirHint && c.withinDepth(child.Depth+1) {
				queue = append(queue, frontierNode{path: child.Path, depth: node.depth + 1})
			}
		}

		if onProgress != nil {
			onProgress(scanned)
		}
	}

	return nil
}

// withinDepth reports whether depth is still inside MaxDepth (0 means
// unbounded). Reaching the max depth stops further descent and emits a
// warning, not an error.
func (c *Crawler) withinDepth(depth int) bool {
	if c.opts.MaxDepth <= 0 {
		return true
	}

	if depth > c.opts.MaxDepth {
		c.opts.Logger.Warn("crawler: max depth reached, stopping descent", "max_depth", c.opts.MaxDepth)
		return false
	}

	return true
}

// enumerate lists one directory's immediate children, applying
// include/exclude rules and symlink cycle detection.
func (c *Crawler) enumerate(node frontierNode) ([]ScanItem, error) {
	entries, err := c.opts.Provider.Enumerate(node.path)
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	out := make([]ScanItem, 0, len(entries))

	for _, entry := range entries {
		childPath := filepath.Join(node.path, entry.Name())
		isDir := entry.IsDir()

		if entry.Type()&pathfsSymlinkMode() != 0 {
			resolved, ok := c.resolveSymlink(childPath)
			if !ok {
				continue
			}

			isDir = resolved
		}

		if !c.opts.Rules.Apply(childPath, isDir) {
			continue
		}

		out = append(out, ScanItem{
			Path:       childPath,
			Depth:      node.depth + 1,
			IsDirHint:  isDir,
			ParentPath: node.path,
		})
	}

	return out, nil
}

// resolveSymlink follows a symlink (when FollowSymlinks is set), guarding
// against cycles via the visited (inode, device) set.
// Returns ok=false when the link should be skipped (broken link,
// FollowSymlinks disabled, or a detected cycle).
func (c *Crawler) resolveSymlink(path string) (isDir bool, ok bool) {
	if !c.opts.FollowSymlinks {
		return false, false
	}

	target, err := filepath.EvalSymlinks(path)
	if err != nil {
		c.opts.Logger.Warn("crawler: broken symlink, skipping", "path", path, "error", err)
		return false, false
	}

	info, err := c.opts.Provider.Stat(target)
	if err != nil {
		c.opts.Logger.Warn("crawler: broken symlink, skipping", "path", path, "error", err)
		return false, false
	}

	key := fingerprintOf(info)
	if c.visited[key] {
		c.opts.Logger.Warn("crawler: symlink cycle detected, skipping", "path", path)
		return false, false
	}

	c.visited[key] = true

	return info.IsDir(), true
}
