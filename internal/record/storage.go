package record

import (
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const maxNameLength = 255

// NewStorage returns a storage containing only the root folder.
func NewStorage(now time.Time) Storage {
	return Storage{
		Files:   []File{},
		Folders: []Folder{rootFolder(now)},
	}
}

func rootFolder(now time.Time) Folder {
	return Folder{
		ID:         RootFolderID,
		Name:       "Root",
		Path:       "/",
		Children:   []string{},
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// Normalize repairs records written by older clients: nil collections become
// empty and a missing root folder is recreated.
func (s *Storage) Normalize(now time.Time) {
	if s.Files == nil {
		s.Files = []File{}
	}
	if s.Folders == nil {
		s.Folders = []Folder{}
	}
	if s.folderIndex(RootFolderID) < 0 {
		s.Folders = append([]Folder{rootFolder(now)}, s.Folders...)
	}
	for i := range s.Folders {
		if s.Folders[i].Children == nil {
			s.Folders[i].Children = []string{}
		}
	}
}

// ValidateName trims and checks a file or folder name. Length is counted in characters.
func ValidateName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", ErrInvalidName
	}
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", ErrInvalidName
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", ErrInvalidName
		}
	}
	return name, nil
}

// File looks up a file by id.
func (s *Storage) File(id string) (File, bool) {
	if i := s.fileIndex(id); i >= 0 {
		return s.Files[i], true
	}
	return File{}, false
}

// Folder looks up a folder by id.
func (s *Storage) Folder(id string) (Folder, bool) {
	if i := s.folderIndex(id); i >= 0 {
		return s.Folders[i], true
	}
	return Folder{}, false
}

// AddFile appends a file to its folder. The caller assigns ID and timestamps.
func (s *Storage) AddFile(file File) error {
	name, err := ValidateName(file.Name)
	if err != nil {
		return err
	}
	file.Name = name
	if s.hasID(file.ID) {
		return ErrDuplicateID
	}
	parent := s.folderIndex(file.FolderID)
	if parent < 0 {
		return ErrFolderNotFound
	}
	if s.fileNameTaken(file.FolderID, name, "") {
		return ErrNameConflict
	}

	s.Files = append(s.Files, file)
	s.Folders[parent].Children = append(s.Folders[parent].Children, file.ID)
	s.Folders[parent].ModifiedAt = file.ModifiedAt
	return nil
}

// AddFolder appends a folder under its parent and derives its path.
func (s *Storage) AddFolder(folder Folder) (Folder, error) {
	name, err := ValidateName(folder.Name)
	if err != nil {
		return Folder{}, err
	}
	folder.Name = name
	if s.hasID(folder.ID) {
		return Folder{}, ErrDuplicateID
	}
	parent := s.folderIndex(folder.ParentID)
	if parent < 0 {
		return Folder{}, ErrFolderNotFound
	}
	if s.folderNameTaken(folder.ParentID, name, "") {
		return Folder{}, ErrNameConflict
	}

	folder.Path = joinPath(s.Folders[parent].Path, name)
	folder.Children = []string{}
	s.Folders = append(s.Folders, folder)
	s.Folders[parent].Children = append(s.Folders[parent].Children, folder.ID)
	s.Folders[parent].ModifiedAt = folder.ModifiedAt
	return folder, nil
}

// RenameFile changes a file's name within its folder.
func (s *Storage) RenameFile(id, newName string, now time.Time) (File, error) {
	i := s.fileIndex(id)
	if i < 0 {
		return File{}, ErrFileNotFound
	}
	name, err := ValidateName(newName)
	if err != nil {
		return File{}, err
	}
	if s.fileNameTaken(s.Files[i].FolderID, name, id) {
		return File{}, ErrNameConflict
	}
	s.Files[i].Name = name
	s.Files[i].ModifiedAt = now
	return s.Files[i], nil
}

// RenameFolder changes a folder's name and rewrites the paths below it.
func (s *Storage) RenameFolder(id, newName string, now time.Time) (Folder, error) {
	if id == RootFolderID {
		return Folder{}, ErrRootImmutable
	}
	i := s.folderIndex(id)
	if i < 0 {
		return Folder{}, ErrFolderNotFound
	}
	name, err := ValidateName(newName)
	if err != nil {
		return Folder{}, err
	}
	if s.folderNameTaken(s.Folders[i].ParentID, name, id) {
		return Folder{}, ErrNameConflict
	}

	parentPath := "/"
	if p, ok := s.Folder(s.Folders[i].ParentID); ok {
		parentPath = p.Path
	}
	s.Folders[i].Name = name
	s.Folders[i].Path = joinPath(parentPath, name)
	s.Folders[i].ModifiedAt = now
	s.rebuildPaths(id)
	return s.Folders[i], nil
}

// DeleteFile removes a single file.
func (s *Storage) DeleteFile(id string) error {
	i := s.fileIndex(id)
	if i < 0 {
		return ErrFileNotFound
	}
	folderID := s.Files[i].FolderID
	s.Files = append(s.Files[:i], s.Files[i+1:]...)
	s.detachChild(folderID, id)
	return nil
}

// DeleteFolder removes a folder together with every file and folder below it.
func (s *Storage) DeleteFolder(id string) (DeleteResult, error) {
	if id == RootFolderID {
		return DeleteResult{}, ErrRootImmutable
	}
	i := s.folderIndex(id)
	if i < 0 {
		return DeleteResult{}, ErrFolderNotFound
	}
	parentID := s.Folders[i].ParentID

	doomed := s.descendants(id)
	doomed[id] = struct{}{}

	var result DeleteResult
	files := s.Files[:0]
	for _, f := range s.Files {
		if _, gone := doomed[f.FolderID]; gone {
			result.Files++
			continue
		}
		files = append(files, f)
	}
	s.Files = files

	folders := s.Folders[:0]
	for _, f := range s.Folders {
		if _, gone := doomed[f.ID]; gone {
			result.Folders++
			continue
		}
		folders = append(folders, f)
	}
	s.Folders = folders

	s.detachChild(parentID, id)
	return result, nil
}

// Usage summarises the storage.
func (s *Storage) Usage() Usage {
	usage := Usage{FileCount: len(s.Files), FolderCount: len(s.Folders)}
	for _, f := range s.Files {
		if f.Size <= 0 {
			continue
		}
		if usage.TotalBytes > math.MaxInt64-f.Size {
			usage.TotalBytes = math.MaxInt64
			continue
		}
		usage.TotalBytes += f.Size
	}
	return usage
}

func (s *Storage) fileIndex(id string) int {
	for i := range s.Files {
		if s.Files[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Storage) folderIndex(id string) int {
	for i := range s.Folders {
		if s.Folders[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Storage) hasID(id string) bool {
	return s.fileIndex(id) >= 0 || s.folderIndex(id) >= 0
}

func (s *Storage) fileNameTaken(folderID, name, exceptID string) bool {
	for _, f := range s.Files {
		if f.FolderID == folderID && f.ID != exceptID && strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func (s *Storage) folderNameTaken(parentID, name, exceptID string) bool {
	for _, f := range s.Folders {
		if f.ParentID == parentID && f.ID != exceptID && f.ID != RootFolderID && strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

func (s *Storage) detachChild(folderID, childID string) {
	i := s.folderIndex(folderID)
	if i < 0 {
		return
	}
	children := s.Folders[i].Children[:0]
	for _, c := range s.Folders[i].Children {
		if c != childID {
			children = append(children, c)
		}
	}
	s.Folders[i].Children = children
}

// descendants returns the ids of all folders strictly below id.
func (s *Storage) descendants(id string) map[string]struct{} {
	found := make(map[string]struct{})
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, f := range s.Folders {
			if f.ParentID != current {
				continue
			}
			if _, seen := found[f.ID]; seen {
				continue
			}
			found[f.ID] = struct{}{}
			queue = append(queue, f.ID)
		}
	}
	return found
}

func (s *Storage) rebuildPaths(id string) {
	visited := map[string]struct{}{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		parent, ok := s.Folder(current)
		if !ok {
			continue
		}
		for i := range s.Folders {
			if s.Folders[i].ParentID != current {
				continue
			}
			if _, seen := visited[s.Folders[i].ID]; !seen {
				visited[s.Folders[i].ID] = struct{}{}
				s.Folders[i].Path = joinPath(parent.Path, s.Folders[i].Name)
				queue = append(queue, s.Folders[i].ID)
			}
		}
	}
}

func joinPath(parent, name string) string {
	if parent == "" || parent == "/" {
		return "/" + name
	}
	return strings.TrimRight(parent, "/") + "/" + name
}
