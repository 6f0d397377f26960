package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/panoptikon-app/panoptikon/internal/catalog"
	"github.com/panoptikon-app/panoptikon/internal/config"
)

// Classifier assigns cloud provider + status heuristically by path
// prefix and `.icloud`-sentinel-style OS attributes. Unknown is a valid
// stable state.
type Classifier struct {
	cfg       config.CloudConfig
	providers []providerRule
}

type providerRule struct {
	provider catalog.CloudProvider
	enabled  bool
	markers  []string // path substrings that identify this provider's root
}

// NewClassifier builds a Classifier from the [cloud] config section,
// toggling which heuristics run.
func NewClassifier(cfg config.CloudConfig) *Classifier {
	return &Classifier{
		cfg: cfg,
		providers: []providerRule{
			{catalog.CloudProviderICloud, cfg.DetectICloud, []string{"/Library/Mobile Documents/", "/CloudDocs/"}},
			{catalog.CloudProviderDropbox, cfg.DetectDropbox, []string{"/Dropbox/"}},
			{catalog.CloudProviderGDrive, cfg.DetectGDrive, []string{"/Google Drive/", "/GoogleDrive/"}},
			{catalog.CloudProviderOneDrive, cfg.DetectOneDrive, []string{"/OneDrive/", "/OneDrive -"}},
			{catalog.CloudProviderBox, cfg.DetectBox, []string{"/Box Sync/", "/Box/"}},
		},
	}
}

// Run reads ExtractedItems from in and sends ClassifiedItems to out,
// tagging each with a CloudProvider and CloudStatus. Closes out when in
// drains or ctx is canceled. This stage is cheap (string matching plus an
// optional sentinel-file stat) so it runs single-threaded rather than on
// its own worker pool.
func (c *Classifier) Run(ctx context.Context, in <-chan ExtractedItem, out chan<- ClassifiedItem) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			return
		case item, ok := <-in:
			if !ok {
				return
			}

			classified := ClassifiedItem{
				ExtractedItem: item,
				CloudProvider: c.classifyProvider(item.Path),
			}
			classified.CloudStatus = c.classifyStatus(item, classified.CloudProvider)

			select {
			case out <- classified:
			case <-ctx.Done():
				return
			}
		}
	}
}

// classifyProvider matches path against each enabled provider's markers.
// Unknown (CloudProviderNone) is returned when nothing matches and is a
// valid stable state.
func (c *Classifier) classifyProvider(path string) catalog.CloudProvider {
	if c.providers == nil {
		return catalog.CloudProviderNone
	}

	for _, rule := range c.providers {
		if !rule.enabled {
			continue
		}

		for _, marker := range rule.markers {
			if strings.Contains(path, marker) {
				return rule.provider
			}
		}
	}

	return catalog.CloudProviderNone
}

// icloudSentinel is the dot-prefixed placeholder iCloud Drive leaves for a
// file whose content has been evicted to the cloud (e.g. "foo.txt" becomes
// ".foo.txt.icloud").
const icloudSentinel = ".icloud"

// classifyStatus determines whether a cloud-backed file's content is
// present on local disk, inspecting the iCloud sentinel-file convention
// when the provider is iCloud; other providers report Unknown until a
// provider-specific signal is wired in.
func (c *Classifier) classifyStatus(item ExtractedItem, provider catalog.CloudProvider) catalog.CloudStatus {
	if provider == catalog.CloudProviderNone {
		return catalog.CloudStatusLocal
	}

	if provider != catalog.CloudProviderICloud {
		return catalog.CloudStatusUnknown
	}

	dir := filepath.Dir(item.Path)
	name := filepath.Base(item.Path)
	sentinel := filepath.Join(dir, "."+name+icloudSentinel)

	if _, err := os.Stat(sentinel); err == nil {
		return catalog.CloudStatusOnlineOnly
	}

	if strings.HasSuffix(name, icloudSentinel) {
		return catalog.CloudStatusOnlineOnly
	}

	return catalog.CloudStatusLocal
}
