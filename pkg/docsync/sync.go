package docsync

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DocumentID derives the document id of path relative to root: the relative
// path with every separator replaced by "_".
func DocumentID(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", path, err)
	}
	if rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", fmt.Errorf("%s is not inside %s", path, root)
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "_"), nil
}

// hidden reports whether any element of rel starts with a dot.
func hidden(rel string) bool {
	for part := range strings.SplitSeq(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

// SyncDir enqueues an upload for every regular, non-hidden file under root,
// waiting for queue capacity as needed. It returns the number of jobs enqueued.
func SyncDir(ctx context.Context, pool *Pool, root, knowledge string) (int, error) {
	enqueued := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel != "." && hidden(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		id, err := DocumentID(root, path)
		if err != nil {
			return err
		}
		if err := pool.EnqueueWait(ctx, Job{Op: OpUpload, Knowledge: knowledge, DocumentID: id, Path: path}); err != nil {
			return err
		}
		enqueued++
		return nil
	})
	if err != nil {
		return enqueued, fmt.Errorf("walking %s: %w", root, err)
	}

	return enqueued, nil
}
