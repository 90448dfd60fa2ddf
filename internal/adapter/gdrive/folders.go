package gdrive

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/Ning0612/Stowage/internal/logger"
	"github.com/Ning0612/Stowage/internal/security"
)

// folderIndex maps full logical folder paths ("/a/b") to Drive folder IDs.
// It is rebuilt on every call and never cached.
type folderIndex map[string]string

// paths returns the indexed folder paths in ascending order
func (idx folderIndex) paths() []string {
	out := make([]string, 0, len(idx))
	for p := range idx {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// folderNode is one folder as returned by the Drive API
type folderNode struct {
	name   string
	parent string
}

// listFolders builds the folder index from every non-trashed folder,
// optionally scoped to the children of parentID.
func (a *Adapter) listFolders(ctx context.Context, parentID string) (folderIndex, error) {
	query := fmt.Sprintf("trashed = false and mimeType = '%s'", MimeTypeFolder)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", security.EscapeQueryValue(parentID))
	}

	nodes := make(map[string]folderNode)
	err := a.eachPage(ctx, query, func(f *drive.File) {
		node := folderNode{name: f.Name}
		if len(f.Parents) > 0 {
			node.parent = f.Parents[0]
		}
		nodes[f.Id] = node
	})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(nodes))
	for id := range nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	resolved := make(map[string]string, len(nodes))
	visiting := make(map[string]bool)

	var fullPath func(id string) string
	fullPath = func(id string) string {
		if p, ok := resolved[id]; ok {
			return p
		}
		// The configured root may itself be visible as a folder
		if id == a.rootID {
			resolved[id] = "/"
			return "/"
		}
		node := nodes[id]

		// A folder with no resolvable parent sits directly under the root.
		// Cycles in the parent chain are cut the same way.
		_, known := nodes[node.parent]
		if !known || node.parent == a.rootID || visiting[id] {
			p := joinPath("/", node.name)
			resolved[id] = p
			return p
		}

		visiting[id] = true
		p := joinPath(fullPath(node.parent), node.name)
		delete(visiting, id)

		// The walk may have resolved id while cutting a cycle
		if cut, ok := resolved[id]; ok {
			return cut
		}
		resolved[id] = p
		return p
	}

	idx := folderIndex{"/": a.rootID}
	for _, id := range ids {
		p := fullPath(id)
		if p == "/" {
			continue
		}
		// Duplicate paths resolve to the smallest ID; ids are sorted.
		if _, exists := idx[p]; !exists {
			idx[p] = id
		}
	}
	return idx, nil
}

// materializeFolders creates every missing ancestor folder of key and
// returns the updated index. Re-running on a materialized path creates nothing.
func (a *Adapter) materializeFolders(ctx context.Context, key string) (folderIndex, error) {
	dir := path.Dir(security.LeadingSlash(key))

	idx, err := a.listFolders(ctx, "")
	if err != nil {
		return nil, err
	}

	parentID := a.rootID
	current := ""
	for _, segment := range strings.Split(dir, "/") {
		if segment == "" {
			continue
		}
		current += "/" + segment

		if id, ok := idx[current]; ok {
			parentID = id
			continue
		}

		folder := &drive.File{
			Name:     segment,
			MimeType: MimeTypeFolder,
			Parents:  []string{parentID},
		}
		created, err := a.files.create(ctx, folder, nil)
		if err != nil {
			return nil, mapError("createFolder", err)
		}

		logger.Get().Debug("Created Drive folder", "path", current, "id", created.Id)
		idx[current] = created.Id
		parentID = created.Id
	}

	return idx, nil
}

// eachPage runs query page by page and calls fn for every returned file
func (a *Adapter) eachPage(ctx context.Context, query string, fn func(*drive.File)) error {
	pageToken := ""
	for {
		fileList, err := a.files.list(ctx, query, pageToken)
		if err != nil {
			return mapError("listFiles", err)
		}

		for _, f := range fileList.Files {
			fn(f)
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			return nil
		}
	}
}

// joinPath joins a folder path and a name, collapsing a doubled slash
func joinPath(dir, name string) string {
	return strings.ReplaceAll(dir+"/"+name, "//", "/")
}
