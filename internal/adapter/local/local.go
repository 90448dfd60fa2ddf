package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ning0612/Stowage/internal/adapter"
	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/security"
)

// ProviderName identifies this backend in ProviderError
const ProviderName = "local"

// tempSuffix marks in-flight uploads, which are hidden from listings
const tempSuffix = ".stowage.tmp"

// Adapter implements adapter.Adapter for the local filesystem
type Adapter struct {
	root string
}

// New creates a new local filesystem adapter.
// root must be an existing directory.
func New(root string) (*Adapter, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: local root %s does not exist", domain.ErrConfigInvalid, absRoot)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: local root %s is not a directory", domain.ErrConfigInvalid, absRoot)
	}

	return &Adapter{root: absRoot}, nil
}

// Factory builds a local adapter from a connection
func Factory(ctx context.Context, conn domain.Connection) (adapter.Adapter, error) {
	return New(conn.Local.Root)
}

// Provider returns the backend identifier
func (a *Adapter) Provider() string {
	return ProviderName
}

// Root returns the root path of this adapter
func (a *Adapter) Root() string {
	return a.root
}

// resolvePath sanitizes key and resolves it to an absolute path within root
func (a *Adapter) resolvePath(key string) (string, string, error) {
	clean, err := security.SanitizeKey(key)
	if err != nil {
		return "", "", err
	}

	fullPath := filepath.Join(a.root, filepath.FromSlash(clean))

	// Verify the path is still within root
	rel, err := filepath.Rel(a.root, fullPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", "", fmt.Errorf("%w: path traversal detected", domain.ErrInvalidKey)
	}

	return clean, fullPath, nil
}

// resolveFile is resolvePath for operations that need a non-empty key
func (a *Adapter) resolveFile(key string) (string, string, error) {
	clean, fullPath, err := a.resolvePath(key)
	if err != nil {
		return "", "", err
	}
	if clean == "" {
		return "", "", fmt.Errorf("%w: empty key", domain.ErrInvalidKey)
	}
	return clean, fullPath, nil
}

// UploadFile writes data atomically, creating parent directories
func (a *Adapter) UploadFile(ctx context.Context, key string, data []byte, mimeType string, isPublic bool) (domain.UploadResult, error) {
	clean, fullPath, err := a.resolveFile(key)
	if err != nil {
		return domain.UploadResult{}, mapError("uploadFile", err)
	}

	if err := writeAtomic(fullPath, bytes.NewReader(data)); err != nil {
		return domain.UploadResult{}, mapError("uploadFile", err)
	}

	result := domain.UploadResult{ID: clean, Key: clean}
	if isPublic {
		result.PublicURL = fileURL(fullPath)
	}
	return result, nil
}

// UploadPublicFile uploads key and returns its file URL
func (a *Adapter) UploadPublicFile(ctx context.Context, key string, data []byte, mimeType string) (domain.UploadResult, error) {
	return a.UploadFile(ctx, key, data, mimeType, true)
}

// UploadPrivateFile uploads key without a public URL
func (a *Adapter) UploadPrivateFile(ctx context.Context, key string, data []byte, mimeType string) (domain.UploadResult, error) {
	return a.UploadFile(ctx, key, data, mimeType, false)
}

// Download returns the file content
func (a *Adapter) Download(ctx context.Context, key string) ([]byte, error) {
	rc, err := a.open(key)
	if err != nil {
		return nil, mapError("download", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, mapError("download", err)
	}
	return data, nil
}

// GetStream opens the file for reading
func (a *Adapter) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := a.open(key)
	if err != nil {
		return nil, mapError("getStream", err)
	}
	return rc, nil
}

// Exists checks if a file or directory exists at key
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	_, fullPath, err := a.resolvePath(key)
	if err != nil {
		return false, mapError("exists", err)
	}

	if _, err := os.Stat(fullPath); err != nil {
		mapped := mapError("exists", err)
		if errors.Is(mapped, domain.ErrNotFound) {
			return false, nil
		}
		return false, mapped
	}
	return true, nil
}

// GetLink returns the file:// URL of an existing file
func (a *Adapter) GetLink(ctx context.Context, key string) (string, error) {
	_, fullPath, err := a.resolveFile(key)
	if err != nil {
		return "", mapError("getLink", err)
	}
	if _, err := os.Stat(fullPath); err != nil {
		return "", mapError("getLink", err)
	}
	return fileURL(fullPath), nil
}

// ListFiles walks the directory at prefix and returns every file below it,
// named relative to prefix, in lexical order. A missing prefix lists nothing.
func (a *Adapter) ListFiles(ctx context.Context, prefix string) ([]domain.FileMetadata, error) {
	clean, dir, err := a.resolvePath(prefix)
	if err != nil {
		return nil, mapError("listFiles", err)
	}

	var result []domain.FileMetadata
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == dir && errors.Is(walkErr, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		// A prefix naming a file is not a folder and lists nothing
		if p == dir && !d.IsDir() {
			return fs.SkipAll
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), tempSuffix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil // Skip entries we can't read
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		objKey := name
		if clean != "" {
			objKey = clean + "/" + name
		}

		result = append(result, domain.FileMetadata{
			Name: name,
			Size: info.Size(),
			Key:  objKey,
		})
		return nil
	})
	if err != nil {
		return nil, mapError("listFiles", err)
	}
	return result, nil
}

// Delete removes the file at key
func (a *Adapter) Delete(ctx context.Context, key string) error {
	_, fullPath, err := a.resolveFile(key)
	if err != nil {
		return mapError("delete", err)
	}
	if err := os.Remove(fullPath); err != nil {
		return mapError("delete", err)
	}
	return nil
}

// Close releases any resources (no-op for local adapter)
func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) open(key string) (io.ReadCloser, error) {
	clean, fullPath, err := a.resolveFile(key)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrValidation, clean)
	}

	return os.Open(fullPath)
}

// writeAtomic writes r to a temp file next to fullPath and renames it into place
func writeAtomic(fullPath string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	tempPath := fullPath + tempSuffix
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()

	if copyErr != nil {
		os.Remove(tempPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	// Atomic rename
	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return err
	}
	return nil
}

func fileURL(fullPath string) string {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(fullPath)}
	return u.String()
}

// extractSignals maps filesystem errors onto HTTP-like statuses
func extractSignals(err error) domain.Signals {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return domain.Signals{Status: 404}
	case errors.Is(err, fs.ErrPermission):
		return domain.Signals{Status: 403}
	}
	return domain.Signals{Message: err.Error()}
}

// mapError converts any failure into a ProviderError for operation
func mapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return domain.MapError(ProviderName, operation, err, extractSignals)
}

// Compile-time interface check
var _ adapter.Adapter = (*Adapter)(nil)
