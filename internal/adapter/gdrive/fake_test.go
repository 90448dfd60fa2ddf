package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

var parentClause = regexp.MustCompile(`'([^']*)' in parents`)

// fakeFile is one node of the in-memory Drive graph
type fakeFile struct {
	id       string
	name     string
	mimeType string
	parent   string
	data     []byte
	size     int64
	link     string
	shared   bool
}

// fakeDrive is an in-memory filesService keyed by file ID
type fakeDrive struct {
	mu       sync.Mutex
	files    map[string]*fakeFile
	nextID   int
	pageSize int

	created  []string
	updated  []string
	exported []string
	calls    int

	listErr     error
	downloadErr error
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{files: make(map[string]*fakeFile)}
}

func (f *fakeDrive) addFolder(id, name, parent string) {
	f.files[id] = &fakeFile{id: id, name: name, mimeType: MimeTypeFolder, parent: parent}
}

func (f *fakeDrive) addFile(id, name, parent string, data []byte) *fakeFile {
	file := &fakeFile{
		id:       id,
		name:     name,
		mimeType: "text/plain",
		parent:   parent,
		data:     data,
		size:     int64(len(data)),
		link:     "https://drive.google.com/file/d/" + id + "/view",
	}
	f.files[id] = file
	return file
}

func notFound(id string) error {
	return &googleapi.Error{
		Code:    404,
		Message: "File not found: " + id,
		Errors:  []googleapi.ErrorItem{{Reason: "notFound"}},
	}
}

func (f *fakeDrive) toDrive(file *fakeFile) *drive.File {
	return &drive.File{
		Id:          file.id,
		Name:        file.name,
		MimeType:    file.mimeType,
		Size:        file.size,
		Parents:     []string{file.parent},
		WebViewLink: file.link,
	}
}

func (f *fakeDrive) list(ctx context.Context, query, pageToken string) (*drive.FileList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.listErr != nil {
		return nil, f.listErr
	}

	foldersOnly := strings.Contains(query, "mimeType = '"+MimeTypeFolder+"'")
	parent := ""
	if m := parentClause.FindStringSubmatch(query); m != nil {
		parent = m[1]
	}

	var matches []*fakeFile
	for _, file := range f.files {
		if foldersOnly && file.mimeType != MimeTypeFolder {
			continue
		}
		if parent != "" && file.parent != parent {
			continue
		}
		matches = append(matches, file)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].name != matches[j].name {
			return matches[i].name < matches[j].name
		}
		return matches[i].id < matches[j].id
	})

	offset := 0
	if pageToken != "" {
		offset, _ = strconv.Atoi(pageToken)
	}
	end := len(matches)
	next := ""
	if f.pageSize > 0 && offset+f.pageSize < end {
		end = offset + f.pageSize
		next = strconv.Itoa(end)
	}

	out := &drive.FileList{NextPageToken: next}
	for _, file := range matches[offset:end] {
		out.Files = append(out.Files, f.toDrive(file))
	}
	return out, nil
}

func (f *fakeDrive) get(ctx context.Context, fileID string) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	file, ok := f.files[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	return f.toDrive(file), nil
}

func (f *fakeDrive) download(ctx context.Context, fileID string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	file, ok := f.files[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	return io.NopCloser(bytes.NewReader(file.data)), nil
}

func (f *fakeDrive) export(ctx context.Context, fileID, mimeType string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if _, ok := f.files[fileID]; !ok {
		return nil, notFound(fileID)
	}
	f.exported = append(f.exported, mimeType)
	return io.NopCloser(strings.NewReader("a,b\n1,2\n")), nil
}

func (f *fakeDrive) create(ctx context.Context, file *drive.File, media io.Reader) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	f.nextID++
	id := fmt.Sprintf("new-%d", f.nextID)

	node := &fakeFile{
		id:       id,
		name:     file.Name,
		mimeType: file.MimeType,
		link:     "https://drive.google.com/file/d/" + id + "/view",
	}
	if len(file.Parents) > 0 {
		node.parent = file.Parents[0]
	}
	if media != nil {
		data, err := io.ReadAll(media)
		if err != nil {
			return nil, err
		}
		node.data = data
		node.size = int64(len(data))
	}

	f.files[id] = node
	f.created = append(f.created, file.Name)
	return f.toDrive(node), nil
}

func (f *fakeDrive) update(ctx context.Context, fileID string, file *drive.File, media io.Reader) (*drive.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	node, ok := f.files[fileID]
	if !ok {
		return nil, notFound(fileID)
	}
	if media != nil {
		data, err := io.ReadAll(media)
		if err != nil {
			return nil, err
		}
		node.data = data
		node.size = int64(len(data))
	}
	f.updated = append(f.updated, fileID)
	return f.toDrive(node), nil
}

func (f *fakeDrive) share(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	node, ok := f.files[fileID]
	if !ok {
		return notFound(fileID)
	}
	node.shared = true
	return nil
}

func (f *fakeDrive) delete(ctx context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if _, ok := f.files[fileID]; !ok {
		return notFound(fileID)
	}
	delete(f.files, fileID)
	return nil
}

// childrenNamed returns the IDs of nodes called name under parent
func (f *fakeDrive) childrenNamed(parent, name string) []string {
	var ids []string
	for _, file := range f.files {
		if file.parent == parent && file.name == name {
			ids = append(ids, file.id)
		}
	}
	sort.Strings(ids)
	return ids
}
