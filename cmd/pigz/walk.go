package main

import (
	"os"
	"path/filepath"
)

// walkFiles expands roots into a flat file list when recurse is set,
// descending directories with filepath.Walk (stdlib: directory traversal
// is out of CORE scope and no pack repo wires a third-party walker for
// it). Non-recursive mode passes roots through unchanged; a root that is
// itself a directory without -r is reported via the returned skipped
// list rather than walked.
func walkFiles(roots []string, recurse bool) (files, skipped []string) {
	for _, root := range roots {
		if root == "-" {
			files = append(files, root)
			continue
		}
		fi, err := os.Stat(root)
		if err != nil {
			files = append(files, root) // let the caller's open() report the error
			continue
		}
		if !fi.IsDir() {
			files = append(files, root)
			continue
		}
		if !recurse {
			skipped = append(skipped, root)
			continue
		}
		filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				return nil
			}
			files = append(files, path)
			return nil
		})
	}
	return files, skipped
}
