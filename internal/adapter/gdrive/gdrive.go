package gdrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/Ning0612/Stowage/internal/adapter"
	"github.com/Ning0612/Stowage/internal/domain"
	"github.com/Ning0612/Stowage/internal/logger"
	"github.com/Ning0612/Stowage/internal/security"
)

// DefaultRootID is the Drive alias of the account's root folder
const DefaultRootID = "root"

// publicURLFormat is the view URL of a publicly shared file
const publicURLFormat = "https://drive.google.com/file/d/%s"

// exportMimeTypes maps native Google document types to their export format
var exportMimeTypes = map[string]string{
	"application/vnd.google-apps.spreadsheet":  "text/csv",
	"application/vnd.google-apps.document":     "text/plain",
	"application/vnd.google-apps.presentation": "application/pdf",
	"application/vnd.google-apps.drawing":      "image/png",
}

// Adapter implements adapter.Adapter for Google Drive.
// Drive has no native paths, so logical keys are mapped onto the
// parent-linked folder graph on every call.
type Adapter struct {
	files  filesService
	rootID string
}

// New creates a Drive adapter authenticated with a service account
func New(ctx context.Context, conn domain.DriveConnection) (*Adapter, error) {
	client, err := NewServiceAccountClient(ctx, conn.ClientEmail, conn.PrivateKey)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if conn.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(conn.Endpoint))
	}

	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return newAdapter(newDriveFiles(service), conn.RootFolderID), nil
}

// Factory builds a Drive adapter from a connection
func Factory(ctx context.Context, conn domain.Connection) (adapter.Adapter, error) {
	return New(ctx, conn.Drive)
}

func newAdapter(files filesService, rootID string) *Adapter {
	if rootID == "" {
		rootID = DefaultRootID
	}
	return &Adapter{files: files, rootID: rootID}
}

// Provider returns the backend identifier
func (a *Adapter) Provider() string {
	return ProviderName
}

// UploadFile creates or updates the file at key, creating missing folders
func (a *Adapter) UploadFile(ctx context.Context, key string, data []byte, mimeType string, isPublic bool) (domain.UploadResult, error) {
	clean, err := security.SanitizeKey(key)
	if err != nil {
		return domain.UploadResult{}, mapError("uploadFile", err)
	}
	if clean == "" {
		return domain.UploadResult{}, mapError("uploadFile", fmt.Errorf("%w: empty key", domain.ErrInvalidKey))
	}

	target := security.LeadingSlash(clean)
	dir := path.Dir(target)
	name := path.Base(target)

	idx, err := a.materializeFolders(ctx, clean)
	if err != nil {
		return domain.UploadResult{}, mapError("uploadFile", err)
	}

	parentID, ok := idx[dir]
	if !ok {
		parentID = a.rootID
	}

	existingID, err := a.findChild(ctx, parentID, name)
	if err != nil {
		return domain.UploadResult{}, mapError("uploadFile", err)
	}

	var file *drive.File
	if existingID != "" {
		file, err = a.files.update(ctx, existingID, &drive.File{MimeType: mimeType}, bytes.NewReader(data))
	} else {
		file, err = a.files.create(ctx, &drive.File{
			Name:     name,
			MimeType: mimeType,
			Parents:  []string{parentID},
		}, bytes.NewReader(data))
	}
	if err != nil {
		return domain.UploadResult{}, mapError("uploadFile", err)
	}

	result := domain.UploadResult{ID: file.Id, Key: clean}
	if isPublic {
		if err := a.files.share(ctx, file.Id); err != nil {
			return domain.UploadResult{}, mapError("uploadFile", err)
		}
		result.PublicURL = fmt.Sprintf(publicURLFormat, file.Id)
	}

	logger.Get().Debug("Uploaded Drive file",
		"key", clean,
		"id", file.Id,
		"updated", existingID != "",
		"public", isPublic)

	return result, nil
}

// UploadPublicFile uploads key with public read access
func (a *Adapter) UploadPublicFile(ctx context.Context, key string, data []byte, mimeType string) (domain.UploadResult, error) {
	return a.UploadFile(ctx, key, data, mimeType, true)
}

// UploadPrivateFile uploads key without public access
func (a *Adapter) UploadPrivateFile(ctx context.Context, key string, data []byte, mimeType string) (domain.UploadResult, error) {
	return a.UploadFile(ctx, key, data, mimeType, false)
}

// Download returns the file content. Native Google documents are exported.
func (a *Adapter) Download(ctx context.Context, key string) ([]byte, error) {
	fileID, err := a.resolveFileID(ctx, key)
	if err != nil {
		return nil, mapError("download", err)
	}

	meta, err := a.files.get(ctx, fileID)
	if err != nil {
		return nil, mapError("download", err)
	}

	var body io.ReadCloser
	if exportType, ok := exportMimeTypes[meta.MimeType]; ok {
		body, err = a.files.export(ctx, fileID, exportType)
	} else {
		body, err = a.files.download(ctx, fileID)
	}
	if err != nil {
		return nil, mapError("download", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, mapError("download", err)
	}
	return data, nil
}

// GetStream opens the raw file content for reading
func (a *Adapter) GetStream(ctx context.Context, key string) (io.ReadCloser, error) {
	fileID, err := a.resolveFileID(ctx, key)
	if err != nil {
		return nil, mapError("getStream", err)
	}

	body, err := a.files.download(ctx, fileID)
	if err != nil {
		return nil, mapError("getStream", err)
	}
	return body, nil
}

// Exists reports whether a file or folder is listed at key
func (a *Adapter) Exists(ctx context.Context, key string) (bool, error) {
	clean, err := security.SanitizeKey(key)
	if err != nil {
		return false, mapError("exists", err)
	}

	normalized := security.LeadingSlash(clean)
	entries, err := a.listEntries(ctx, path.Dir(normalized))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, mapError("exists", err)
	}

	for _, e := range entries {
		if e.path == normalized {
			return true, nil
		}
	}
	return false, nil
}

// GetLink returns the Drive web view link of the file
func (a *Adapter) GetLink(ctx context.Context, key string) (string, error) {
	fileID, err := a.resolveFileID(ctx, key)
	if err != nil {
		return "", mapError("getLink", err)
	}

	meta, err := a.files.get(ctx, fileID)
	if err != nil {
		return "", mapError("getLink", err)
	}
	if meta.WebViewLink == "" {
		return "", mapError("getLink", fmt.Errorf("%w: no web view link for %s", domain.ErrUnavailable, fileID))
	}
	return meta.WebViewLink, nil
}

// ListFiles returns every file and folder under prefix, recursively,
// named by full logical path and ordered by that path.
func (a *Adapter) ListFiles(ctx context.Context, prefix string) ([]domain.FileMetadata, error) {
	clean, err := security.SanitizeKey(prefix)
	if err != nil {
		return nil, mapError("listFiles", err)
	}

	entries, err := a.listEntries(ctx, security.LeadingSlash(clean))
	if err != nil {
		return nil, mapError("listFiles", err)
	}

	result := make([]domain.FileMetadata, 0, len(entries))
	for _, e := range entries {
		name := strings.TrimPrefix(e.path, "/")
		if e.folder {
			name += "/"
		}
		result = append(result, domain.FileMetadata{
			Name: name,
			Size: e.size,
			Key:  e.id,
		})
	}
	return result, nil
}

// Delete removes the file at key
func (a *Adapter) Delete(ctx context.Context, key string) error {
	fileID, err := a.resolveFileID(ctx, key)
	if err != nil {
		return mapError("delete", err)
	}

	if err := a.files.delete(ctx, fileID); err != nil {
		return mapError("delete", err)
	}
	return nil
}

// Close releases any resources
func (a *Adapter) Close() error {
	return nil
}

// entry is one listing candidate keyed by full logical path
type entry struct {
	path   string
	id     string
	size   int64
	folder bool
	self   bool
}

// listEntries collects the contents of every indexed folder under normalized,
// sorted by full path, without the queried folder itself.
func (a *Adapter) listEntries(ctx context.Context, normalized string) ([]entry, error) {
	idx, err := a.listFolders(ctx, "")
	if err != nil {
		return nil, err
	}

	candidates := []entry{{path: normalized, self: true}}
	for _, folderPath := range idx.paths() {
		if !strings.HasPrefix(folderPath, normalized) {
			continue
		}

		query := fmt.Sprintf("trashed = false and '%s' in parents", security.EscapeQueryValue(idx[folderPath]))
		err := a.eachPage(ctx, query, func(f *drive.File) {
			full := joinPath(folderPath, f.Name)
			isFolder := f.MimeType == MimeTypeFolder
			// Duplicate folders at one path collapse onto the indexed ID
			if id, ok := idx[full]; isFolder && ok && id != f.Id {
				return
			}
			candidates = append(candidates, entry{
				path:   full,
				id:     f.Id,
				size:   f.Size,
				folder: isFolder,
			})
		})
		if err != nil {
			return nil, err
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].path < candidates[j].path
	})

	out := candidates[:0]
	for _, c := range candidates {
		if c.self || c.path == normalized || !strings.HasPrefix(c.path, normalized) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// findChild returns the ID of the non-folder child called name under parentID,
// or "" when there is none.
func (a *Adapter) findChild(ctx context.Context, parentID, name string) (string, error) {
	query := fmt.Sprintf("trashed = false and '%s' in parents", security.EscapeQueryValue(parentID))

	var found string
	err := a.eachPage(ctx, query, func(f *drive.File) {
		if found == "" && f.Name == name && f.MimeType != MimeTypeFolder {
			found = f.Id
		}
	})
	return found, err
}

// resolveFileID maps a logical key to a Drive file ID. A slash-free key
// that does not resolve as a path is taken as a native file ID.
func (a *Adapter) resolveFileID(ctx context.Context, key string) (string, error) {
	clean, err := security.SanitizeKey(key)
	if err != nil {
		return "", err
	}
	if clean == "" {
		return "", fmt.Errorf("%w: empty key", domain.ErrInvalidKey)
	}

	target := security.LeadingSlash(clean)
	idx, err := a.listFolders(ctx, "")
	if err != nil {
		return "", err
	}

	if id, ok := idx[target]; ok {
		return id, nil
	}

	if parentID, ok := idx[path.Dir(target)]; ok {
		id, err := a.findChild(ctx, parentID, path.Base(target))
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}

	if !strings.Contains(clean, "/") {
		return clean, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrNotFound, clean)
}

// Compile-time interface check
var _ adapter.Adapter = (*Adapter)(nil)
