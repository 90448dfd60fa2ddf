package diff

import (
	"strings"

	"github.com/Ning0612/Stowage/internal/domain"
)

// Result represents the comparison result between two listing entries
type Result int

const (
	// Identical indicates the target already holds the object
	Identical Result = iota
	// Modified indicates the object exists on both sides but differs
	Modified
	// OnlyInSource indicates the object is missing from the target
	OnlyInSource
	// OnlyInTarget indicates the object exists only in the target
	OnlyInTarget
)

// String returns the string representation of the result
func (r Result) String() string {
	switch r {
	case Identical:
		return "identical"
	case Modified:
		return "modified"
	case OnlyInSource:
		return "only_in_source"
	case OnlyInTarget:
		return "only_in_target"
	default:
		return "unknown"
	}
}

// Compare compares a source entry with the target entry at the same
// relative path. Listings carry neither timestamps nor content hashes, so
// two objects of the same size are treated as identical.
func Compare(src, tgt *domain.FileMetadata) Result {
	switch {
	case src == nil && tgt == nil:
		return Identical
	case tgt == nil:
		return OnlyInSource
	case src == nil:
		return OnlyInTarget
	}

	// A folder never matches a file at the same path
	if src.IsFolder() != tgt.IsFolder() {
		return Modified
	}
	if src.Size != tgt.Size {
		return Modified
	}
	return Identical
}

// RelPath returns the path of e relative to the listed prefix.
// fullPaths selects the listing convention of the backend: full logical
// paths, or names already relative to the prefix. Entries outside the
// prefix folder report false.
func RelPath(e domain.FileMetadata, fullPaths bool, prefix string) (string, bool) {
	name := e.Name
	if fullPaths && prefix != "" {
		if !strings.HasPrefix(name, prefix+"/") {
			return "", false
		}
		name = strings.TrimPrefix(name, prefix+"/")
	}
	name = strings.TrimSuffix(name, "/")
	if name == "" {
		return "", false
	}
	return name, true
}

// Index maps the file entries of a listing by their path relative to
// prefix. Folder entries are left out.
func Index(entries []domain.FileMetadata, fullPaths bool, prefix string) map[string]domain.FileMetadata {
	index := make(map[string]domain.FileMetadata, len(entries))
	for _, e := range entries {
		if e.IsFolder() {
			continue
		}
		if rel, ok := RelPath(e, fullPaths, prefix); ok {
			index[rel] = e
		}
	}
	return index
}
