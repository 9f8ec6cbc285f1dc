package loader

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

// TextExtension is the only file type picked up by directory and bucket
// discovery.
const TextExtension = ".txt"

// GraphFile represents a text document that can be ingested into the graph.
// ID is assigned once at discovery and becomes the Document id, so the same
// file discovered twice yields two documents.
//
// The actual file content is retrieved via the associated GraphFileLoader.
type GraphFile struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewGraphFileParams defines the input parameters for creating a new GraphFile.
// An empty ID is replaced by a random UUID.
type NewGraphFileParams struct {
	ID       string
	FilePath string
	Loader   GraphFileLoader
}

// NewGraphTextFile creates a GraphFile for a UTF-8 text document.
func NewGraphTextFile(params NewGraphFileParams) GraphFile {
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}
	return GraphFile{
		ID:       id,
		FilePath: params.FilePath,
		Loader:   params.Loader,
	}
}

// Name returns the base name of the file, used as the document source.
func (f GraphFile) Name() string {
	return path.Base(strings.ReplaceAll(f.FilePath, "\\", "/"))
}

// GetText retrieves the raw text content of the file using its Loader.
//
// Example:
//
//	text, err := file.GetText(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(string(text))
func (f *GraphFile) GetText(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileText(ctx, *f)
}

// GraphFileLoader defines the interface for loading the contents of a GraphFile.
// Implementations may load files from disk, cloud storage, or other sources.
type GraphFileLoader interface {
	GetFileText(ctx context.Context, file GraphFile) ([]byte, error)
}

// GraphFileLister discovers text documents below a root (a directory or a
// bucket prefix). Every returned file carries a fresh ID and the lister as
// its Loader.
type GraphFileLister interface {
	GraphFileLoader
	ListGraphFiles(ctx context.Context, root string) ([]GraphFile, error)
}

// IsTextFile reports whether name has the text extension (case-insensitive).
func IsTextFile(name string) bool {
	return strings.EqualFold(path.Ext(name), TextExtension)
}
