package record

import "time"

// RootFolderID identifies the folder every storage starts with.
const RootFolderID = "root"

// User is the whole document persisted per storage id.
type User struct {
	StorageID    string    `json:"storageId"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	Storage      Storage   `json:"storage"`
}

// Storage holds a user's files and folders in insertion order.
type Storage struct {
	Files   []File   `json:"files"`
	Folders []Folder `json:"folders"`
}

// File is a single stored file. Content is optional.
type File struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Type       string    `json:"type"`
	Content    string    `json:"content,omitempty"`
	FolderID   string    `json:"folderId"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Folder groups files and sub-folders. Children lists the ids of both.
type Folder struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	ParentID   string    `json:"parentId,omitempty"`
	Children   []string  `json:"children"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// Usage reflects aggregate statistics for a storage.
type Usage struct {
	TotalBytes  int64 `json:"totalBytes"`
	FileCount   int   `json:"fileCount"`
	FolderCount int   `json:"folderCount"`
}

// DeleteResult reports how many items a delete removed.
type DeleteResult struct {
	Files   int `json:"files"`
	Folders int `json:"folders"`
}

// Clone returns a deep copy so callers can mutate without aliasing store state.
func (u User) Clone() User {
	out := u
	out.Storage.Files = make([]File, len(u.Storage.Files))
	copy(out.Storage.Files, u.Storage.Files)
	out.Storage.Folders = make([]Folder, len(u.Storage.Folders))
	for i, folder := range u.Storage.Folders {
		children := make([]string, len(folder.Children))
		copy(children, folder.Children)
		folder.Children = children
		out.Storage.Folders[i] = folder
	}
	return out
}
