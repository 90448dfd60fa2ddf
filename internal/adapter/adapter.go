package adapter

import (
	"context"
	"io"

	"github.com/Ning0612/Stowage/internal/domain"
)

// Adapter defines the storage contract every backend implements.
// Keys are validated before any backend call, and every failure is
// returned as a *domain.ProviderError carrying the operation and category.
type Adapter interface {
	// UploadFile creates or overwrites the object at key.
	// When isPublic is set the object is made publicly readable and
	// the result carries a public URL.
	UploadFile(ctx context.Context, key string, data []byte, mimeType string, isPublic bool) (domain.UploadResult, error)

	// UploadPublicFile is UploadFile with isPublic fixed to true
	UploadPublicFile(ctx context.Context, key string, data []byte, mimeType string) (domain.UploadResult, error)

	// UploadPrivateFile is UploadFile with isPublic fixed to false
	UploadPrivateFile(ctx context.Context, key string, data []byte, mimeType string) (domain.UploadResult, error)

	// Download returns the full object content
	Download(ctx context.Context, key string) ([]byte, error)

	// GetStream opens a single-pass stream of the object content.
	// Caller is responsible for closing the reader.
	GetStream(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is resolvable at key.
	// A not_found failure yields false; every other category is returned.
	Exists(ctx context.Context, key string) (bool, error)

	// GetLink returns a URL that fetches the object
	GetLink(ctx context.Context, key string) (string, error)

	// ListFiles returns the entries under prefix in ascending path order,
	// excluding the prefix folder itself. Folder names end with "/".
	ListFiles(ctx context.Context, prefix string) ([]domain.FileMetadata, error)

	// Delete removes the object at key
	Delete(ctx context.Context, key string) error

	// Provider returns the backend identifier used in ProviderError
	Provider() string

	// Close releases any resources held by the adapter
	Close() error
}

// Factory creates an adapter for a resolved connection
type Factory func(ctx context.Context, conn domain.Connection) (Adapter, error)
