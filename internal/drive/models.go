package drive

import "github.com/abduss/cloudbin/internal/record"

// Item types accepted by rename and delete.
const (
	ItemFile   = "file"
	ItemFolder = "folder"
)

// View is the snapshot returned by Get.
type View struct {
	StorageID string         `json:"storageId"`
	Storage   record.Storage `json:"storage"`
	Usage     record.Usage   `json:"usage"`
}

// FileInput is the client supplied part of a new file. Empty ID and FolderID
// are filled in by the service; a zero Size defaults to the content length.
type FileInput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	FolderID string `json:"folderId"`
}

// FolderInput is the client supplied part of a new folder.
type FolderInput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

// Renamed holds whichever item a rename touched.
type Renamed struct {
	File   *record.File   `json:"file,omitempty"`
	Folder *record.Folder `json:"folder,omitempty"`
}
