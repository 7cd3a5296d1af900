package record

import "errors"

var (
	// ErrNotFound indicates no user record exists for the storage id.
	ErrNotFound = errors.New("storage not found")
	// ErrAlreadyExists is returned when a storage id is already taken.
	ErrAlreadyExists = errors.New("storage already exists")
	// ErrDuplicateID signals a file or folder id collision inside one storage.
	ErrDuplicateID = errors.New("item id already exists")
	// ErrFileNotFound signals that the file could not be located.
	ErrFileNotFound = errors.New("file not found")
	// ErrFolderNotFound signals that the folder could not be located.
	ErrFolderNotFound = errors.New("folder not found")
	// ErrNameConflict is returned when a sibling already uses the name.
	ErrNameConflict = errors.New("name already used in folder")
	// ErrInvalidName rejects empty, oversized or path-like names.
	ErrInvalidName = errors.New("invalid name")
	// ErrRootImmutable is returned on attempts to rename or delete the root folder.
	ErrRootImmutable = errors.New("root folder cannot be modified")
)
