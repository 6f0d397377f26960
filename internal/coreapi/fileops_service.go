package coreapi

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/panoptikon-app/panoptikon/internal/perror"
	"github.com/panoptikon-app/panoptikon/internal/windows"
)

// FileOperationsService is the UI-facing facade for the file operations
// open, reveal, and drag_source. A DualWindowManager's committed drag goes
// through DragMover (below), which implements windows.FileOperations;
// FileOperationsService does not. It shells out to the platform's "open" helper rather
// than reimplementing file-association logic, darwin-only since
// Panoptikon targets macOS exclusively.
type FileOperationsService struct{}

// NewFileOperationsService creates a FileOperationsService. It carries no
// state: every method is a direct syscall/exec wrapper.
func NewFileOperationsService() *FileOperationsService {
	return &FileOperationsService{}
}

// Open launches path with its default application.
func (s *FileOperationsService) Open(ctx context.Context, path string) error {
	if err := exec.CommandContext(ctx, "open", path).Start(); err != nil {
		return perror.New(perror.CategoryIO, "coreapi.fileops.open", "", "launching default application", err)
	}

	return nil
}

// Reveal highlights path in Finder.
func (s *FileOperationsService) Reveal(ctx context.Context, path string) error {
	if err := exec.CommandContext(ctx, "open", "-R", path).Start(); err != nil {
		return perror.New(perror.CategoryIO, "coreapi.fileops.reveal", "", "revealing in Finder", err)
	}

	return nil
}

// DragSource validates that every path in paths still exists and returns
// them unchanged; the actual OS-level drag is driven by the UI's native
// drag session, this call is the core's chance to reject stale paths
// before that session starts.
func (s *FileOperationsService) DragSource(_ context.Context, paths []string) ([]string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, perror.New(perror.CategoryIO, "coreapi.fileops.drag_source", "", "path no longer exists: "+p, err)
		}
	}

	return paths, nil
}

// DragMover implements windows.FileOperations by moving each dragged path
// into the target window's current directory. Resolving "target window's
// current directory" needs UI-level knowledge this core layer doesn't
// have (only window ids), so that lookup is injected as destDirOf rather
// than hardcoded here.
type DragMover struct {
	destDirOf func(id windows.WindowID) (string, error)
}

// NewDragMover creates a DragMover that resolves a window id to a
// destination directory via destDirOf (typically a closure over the
// WindowCoordinator's bound DualWindowManager).
func NewDragMover(destDirOf func(id windows.WindowID) (string, error)) *DragMover {
	return &DragMover{destDirOf: destDirOf}
}

// CommitDrag moves each path into the target window's directory.
func (d *DragMover) CommitDrag(_ context.Context, paths []string, source, target windows.WindowID) error {
	destDir, err := d.destDirOf(target)
	if err != nil {
		return err
	}

	for _, p := range paths {
		dest := filepath.Join(destDir, filepath.Base(p))
		if err := os.Rename(p, dest); err != nil {
			return perror.New(perror.CategoryIO, "coreapi.fileops.commit_drag", "",
				fmt.Sprintf("moving %s (window %s -> %s)", p, source, target), err)
		}
	}

	return nil
}
