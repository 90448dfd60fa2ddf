package domain

// FileMetadata describes one entry returned by a listing. It is recomputed on
// every call and never persisted.
type FileMetadata struct {
	// Name is the entry path as reported by the backend listing.
	// Folder entries end with "/".
	Name string `json:"name" yaml:"name"`

	// Size in bytes (0 when the backend reports none)
	Size int64 `json:"size" yaml:"size"`

	// Key is the backend-native identifier (object key or Drive file ID)
	Key string `json:"key" yaml:"key"`
}

// IsFolder returns true if this entry denotes a folder
func (f FileMetadata) IsFolder() bool {
	return len(f.Name) > 0 && f.Name[len(f.Name)-1] == '/'
}

// UploadResult is returned by every upload operation
type UploadResult struct {
	// ID is the backend object identifier
	ID string `json:"id" yaml:"id"`

	// Key is the normalized logical key
	Key string `json:"key" yaml:"key"`

	// PublicURL is set only when the object was uploaded with public visibility
	PublicURL string `json:"publicUrl,omitempty" yaml:"publicUrl,omitempty"`
}
