package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/config"
)

func classifyOne(t *testing.T, c *Classifier, item ExtractedItem) ClassifiedItem {
	t.Helper()

	in := make(chan ExtractedItem, 1)
	out := make(chan ClassifiedItem, 1)
	in <- item
	close(in)

	c.Run(context.Background(), in, out)

	return <-out
}

func TestClassifier_DetectsICloudByPathMarker(t *testing.T) {
	c := NewClassifier(config.CloudConfig{DetectICloud: true})

	got := classifyOne(t, c, ExtractedItem{ScanItem: ScanItem{Path: "/Users/x/Library/Mobile Documents/com~apple~CloudDocs/a.txt"}})

	assert.Equal(t, catalog.CloudProviderICloud, got.CloudProvider)
}

func TestClassifier_UnmatchedPathIsNoneAndLocal(t *testing.T) {
	c := NewClassifier(config.CloudConfig{DetectICloud: true})

	got := classifyOne(t, c, ExtractedItem{ScanItem: ScanItem{Path: "/Users/x/Documents/a.txt"}})

	assert.Equal(t, catalog.CloudProviderNone, got.CloudProvider)
	assert.Equal(t, catalog.CloudStatusLocal, got.CloudStatus)
}

func TestClassifier_DisabledProviderIsNotDetected(t *testing.T) {
	c := NewClassifier(config.CloudConfig{DetectICloud: false})

	got := classifyOne(t, c, ExtractedItem{ScanItem: ScanItem{Path: "/x/Library/Mobile Documents/y/a.txt"}})

	assert.Equal(t, catalog.CloudProviderNone, got.CloudProvider)
}

func TestClassifier_DropboxUnknownStatus(t *testing.T) {
	c := NewClassifier(config.CloudConfig{DetectDropbox: true})

	got := classifyOne(t, c, ExtractedItem{ScanItem: ScanItem{Path: "/Users/x/Dropbox/a.txt"}})

	assert.Equal(t, catalog.CloudProviderDropbox, got.CloudProvider)
	assert.Equal(t, catalog.CloudStatusUnknown, got.CloudStatus)
}

func TestClassifier_ICloudSentinelMeansOnlineOnly(t *testing.T) {
	dir := t.TempDir()
	icloudDir := filepath.Join(dir, "Library", "Mobile Documents", "com~apple~CloudDocs")
	require.NoError(t, os.MkdirAll(icloudDir, 0o755))

	target := filepath.Join(icloudDir, "a.txt")
	sentinel := filepath.Join(icloudDir, ".a.txt.icloud")
	require.NoError(t, os.WriteFile(sentinel, []byte{}, 0o644))

	c := NewClassifier(config.CloudConfig{DetectICloud: true})

	got := classifyOne(t, c, ExtractedItem{ScanItem: ScanItem{Path: target}})

	assert.Equal(t, catalog.CloudStatusOnlineOnly, got.CloudStatus)
}
