package io

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/OFFIS-RIT/cropgraph/backend/pkg/loader"
)

// IOGraphFileLoader loads files directly from the local filesystem with caching.
type IOGraphFileLoader struct {
	cache *loader.TextCache
}

// NewIOGraphFileLoader creates a new filesystem-based file loader.
func NewIOGraphFileLoader() *IOGraphFileLoader {
	return &IOGraphFileLoader{
		cache: loader.NewTextCache(),
	}
}

// GetFileText reads the file content from the filesystem. Results are cached.
func (l *IOGraphFileLoader) GetFileText(ctx context.Context, file loader.GraphFile) ([]byte, error) {
	return l.cache.Load(loader.CacheKey(file), func() ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return os.ReadFile(file.FilePath)
	})
}

// ListGraphFiles walks root recursively and returns every *.txt file in
// lexical path order, each with a fresh ID.
func (l *IOGraphFileLoader) ListGraphFiles(ctx context.Context, root string) ([]loader.GraphFile, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !loader.IsTextFile(d.Name()) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	files := make([]loader.GraphFile, 0, len(paths))
	for _, p := range paths {
		files = append(files, loader.NewGraphTextFile(loader.NewGraphFileParams{
			FilePath: p,
			Loader:   l,
		}))
	}
	return files, nil
}
