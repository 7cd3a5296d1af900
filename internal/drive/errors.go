package drive

import "errors"

var (
	// ErrInvalidItemType rejects item types other than "file" and "folder".
	ErrInvalidItemType = errors.New("itemType must be \"file\" or \"folder\"")
	// ErrMissingID indicates the request named no item.
	ErrMissingID = errors.New("item id is required")
	// ErrContentTooLarge is returned when inline file content exceeds the limit.
	ErrContentTooLarge = errors.New("file content too large")
	// ErrInvalidSize rejects negative, implausible or content-contradicting sizes.
	ErrInvalidSize = errors.New("file size is out of range or smaller than its content")
	// ErrStorageNotFound indicates the session names a storage that no longer exists.
	ErrStorageNotFound = errors.New("storage not found")
)
