package events

import (
	"context"
	"time"
)

// Event types emitted after a successful storage mutation.
const (
	StorageCreated = "storage.created"
	FileAdded      = "file.added"
	FolderAdded    = "folder.added"
	ItemRenamed    = "item.renamed"
	ItemDeleted    = "item.deleted"
)

// Event describes one change to a user's storage.
type Event struct {
	Type      string    `json:"type"`
	StorageID string    `json:"storageId"`
	ItemID    string    `json:"itemId,omitempty"`
	ItemType  string    `json:"itemType,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher delivers change events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
