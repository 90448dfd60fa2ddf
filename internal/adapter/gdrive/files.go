package gdrive

import (
	"context"
	"io"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = "application/vnd.google-apps.folder"
	// PageSize is the number of files to fetch per request
	PageSize = 1000

	listFields = "nextPageToken, files(id, name, mimeType, size, parents)"
	fileFields = "id, name, mimeType, size, parents, webViewLink"
)

// filesService is the subset of the Drive API the adapter depends on
type filesService interface {
	list(ctx context.Context, query, pageToken string) (*drive.FileList, error)
	get(ctx context.Context, fileID string) (*drive.File, error)
	download(ctx context.Context, fileID string) (io.ReadCloser, error)
	export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error)
	create(ctx context.Context, file *drive.File, media io.Reader) (*drive.File, error)
	update(ctx context.Context, fileID string, file *drive.File, media io.Reader) (*drive.File, error)
	share(ctx context.Context, fileID string) error
	delete(ctx context.Context, fileID string) error
}

// driveFiles implements filesService over the Drive v3 client
type driveFiles struct {
	files       *drive.FilesService
	permissions *drive.PermissionsService
}

func newDriveFiles(service *drive.Service) *driveFiles {
	return &driveFiles{
		files:       service.Files,
		permissions: service.Permissions,
	}
}

func (d *driveFiles) list(ctx context.Context, query, pageToken string) (*drive.FileList, error) {
	call := d.files.List().
		Q(query).
		PageSize(PageSize).
		OrderBy("name").
		Fields(listFields)

	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	return call.Context(ctx).Do()
}

func (d *driveFiles) get(ctx context.Context, fileID string) (*drive.File, error) {
	return d.files.Get(fileID).Fields(fileFields).Context(ctx).Do()
}

func (d *driveFiles) download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	resp, err := d.files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (d *driveFiles) export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	resp, err := d.files.Export(fileID, mimeType).Context(ctx).Download()
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (d *driveFiles) create(ctx context.Context, file *drive.File, media io.Reader) (*drive.File, error) {
	call := d.files.Create(file).Fields(fileFields).Context(ctx)
	if media != nil {
		call = call.Media(media, mediaOptions(file.MimeType)...)
	}
	return call.Do()
}

func (d *driveFiles) update(ctx context.Context, fileID string, file *drive.File, media io.Reader) (*drive.File, error) {
	call := d.files.Update(fileID, file).Fields(fileFields).Context(ctx)
	if media != nil {
		call = call.Media(media, mediaOptions(file.MimeType)...)
	}
	return call.Do()
}

// share grants anyone-with-the-link read access without making the file discoverable
func (d *driveFiles) share(ctx context.Context, fileID string) error {
	perm := &drive.Permission{
		Type:               "anyone",
		Role:               "reader",
		AllowFileDiscovery: false,
		ForceSendFields:    []string{"AllowFileDiscovery"},
	}
	_, err := d.permissions.Create(fileID, perm).Context(ctx).Do()
	return err
}

func (d *driveFiles) delete(ctx context.Context, fileID string) error {
	return d.files.Delete(fileID).Context(ctx).Do()
}

func mediaOptions(mimeType string) []googleapi.MediaOption {
	if mimeType == "" {
		return nil
	}
	return []googleapi.MediaOption{googleapi.ContentType(mimeType)}
}
