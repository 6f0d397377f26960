package main

import "os"

// writeTestFile creates path with contents, used by command tests that
// need a real file on disk for the indexer to crawl.
func writeTestFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
