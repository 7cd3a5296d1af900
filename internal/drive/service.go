package drive

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/abduss/cloudbin/internal/events"
	"github.com/abduss/cloudbin/internal/record"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultMIMEType = "application/octet-stream"
	// maxDeclaredSize bounds the size a client may claim for metadata-only files.
	maxDeclaredSize = 1 << 40
)

// Service applies storage actions as whole-record read-modify-write cycles.
// Mutations of one storage id are serialised within this process.
type Service struct {
	store           record.Store
	publisher       events.Publisher
	log             *zap.Logger
	maxContentBytes int64
	locks           *keyedMutex
	nowFunc         func() time.Time
	newID           func() string
}

// NewService creates a Service with dependencies.
func NewService(store record.Store, publisher events.Publisher, maxContentBytes int64, log *zap.Logger) *Service {
	return &Service{
		store:           store,
		publisher:       publisher,
		log:             log,
		maxContentBytes: maxContentBytes,
		locks:           newKeyedMutex(),
		nowFunc:         time.Now,
		newID:           uuid.NewString,
	}
}

// Get returns the storage and its usage.
func (s *Service) Get(ctx context.Context, storageID string) (View, error) {
	user, err := s.load(ctx, storageID)
	if err != nil {
		return View{}, err
	}
	return View{
		StorageID: user.StorageID,
		Storage:   user.Storage,
		Usage:     user.Storage.Usage(),
	}, nil
}

// AddFile stores a new file and returns it as persisted.
func (s *Service) AddFile(ctx context.Context, storageID string, in FileInput) (record.File, error) {
	if s.maxContentBytes > 0 && int64(len(in.Content)) > s.maxContentBytes {
		return record.File{}, ErrContentTooLarge
	}
	if in.Size < 0 || in.Size > maxDeclaredSize {
		return record.File{}, ErrInvalidSize
	}
	if in.Size > 0 && in.Size < int64(len(in.Content)) {
		return record.File{}, ErrInvalidSize
	}

	now := s.nowFunc().UTC()
	file := record.File{
		ID:         strings.TrimSpace(in.ID),
		Name:       in.Name,
		Size:       in.Size,
		Type:       strings.TrimSpace(in.Type),
		Content:    in.Content,
		FolderID:   strings.TrimSpace(in.FolderID),
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if file.ID == "" {
		file.ID = s.newID()
	}
	if file.FolderID == "" {
		file.FolderID = record.RootFolderID
	}
	if file.Size == 0 {
		file.Size = int64(len(in.Content))
	}
	if file.Type == "" {
		file.Type = defaultMIMEType
	}

	err := s.mutate(ctx, storageID, func(st *record.Storage) error {
		if err := st.AddFile(file); err != nil {
			return err
		}
		file, _ = st.File(file.ID)
		return nil
	})
	if err != nil {
		return record.File{}, err
	}

	s.publish(ctx, events.Event{Type: events.FileAdded, StorageID: storageID, ItemID: file.ID, ItemType: ItemFile, At: now})
	return file, nil
}

// AddFolder creates a folder below its parent, root by default.
func (s *Service) AddFolder(ctx context.Context, storageID string, in FolderInput) (record.Folder, error) {
	now := s.nowFunc().UTC()
	folder := record.Folder{
		ID:         strings.TrimSpace(in.ID),
		Name:       in.Name,
		ParentID:   strings.TrimSpace(in.ParentID),
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if folder.ID == "" {
		folder.ID = s.newID()
	}
	if folder.ParentID == "" {
		folder.ParentID = record.RootFolderID
	}

	var created record.Folder
	err := s.mutate(ctx, storageID, func(st *record.Storage) error {
		var err error
		created, err = st.AddFolder(folder)
		return err
	})
	if err != nil {
		return record.Folder{}, err
	}

	s.publish(ctx, events.Event{Type: events.FolderAdded, StorageID: storageID, ItemID: created.ID, ItemType: ItemFolder, At: now})
	return created, nil
}

// Rename gives a file or folder a new name.
func (s *Service) Rename(ctx context.Context, storageID, itemType, id, newName string) (Renamed, error) {
	if err := checkItem(itemType, id); err != nil {
		return Renamed{}, err
	}

	now := s.nowFunc().UTC()
	var out Renamed
	err := s.mutate(ctx, storageID, func(st *record.Storage) error {
		if itemType == ItemFile {
			file, err := st.RenameFile(id, newName, now)
			if err != nil {
				return err
			}
			out.File = &file
			return nil
		}
		folder, err := st.RenameFolder(id, newName, now)
		if err != nil {
			return err
		}
		out.Folder = &folder
		return nil
	})
	if err != nil {
		return Renamed{}, err
	}

	s.publish(ctx, events.Event{Type: events.ItemRenamed, StorageID: storageID, ItemID: id, ItemType: itemType, At: now})
	return out, nil
}

// Delete removes a file, or a folder with everything below it.
func (s *Service) Delete(ctx context.Context, storageID, itemType, id string) (record.DeleteResult, error) {
	if err := checkItem(itemType, id); err != nil {
		return record.DeleteResult{}, err
	}

	var result record.DeleteResult
	err := s.mutate(ctx, storageID, func(st *record.Storage) error {
		if itemType == ItemFile {
			if err := st.DeleteFile(id); err != nil {
				return err
			}
			result = record.DeleteResult{Files: 1}
			return nil
		}
		var err error
		result, err = st.DeleteFolder(id)
		return err
	})
	if err != nil {
		return record.DeleteResult{}, err
	}

	s.publish(ctx, events.Event{Type: events.ItemDeleted, StorageID: storageID, ItemID: id, ItemType: itemType, At: s.nowFunc().UTC()})
	return result, nil
}

func (s *Service) mutate(ctx context.Context, storageID string, apply func(*record.Storage) error) error {
	unlock := s.locks.Lock(storageID)
	defer unlock()

	user, err := s.load(ctx, storageID)
	if err != nil {
		return err
	}
	if err := apply(&user.Storage); err != nil {
		return err
	}
	if err := s.store.Put(ctx, user); err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return ErrStorageNotFound
		}
		return fmt.Errorf("save storage: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, storageID string) (record.User, error) {
	user, err := s.store.Get(ctx, storageID)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			return record.User{}, ErrStorageNotFound
		}
		return record.User{}, fmt.Errorf("load storage: %w", err)
	}
	user.Storage.Normalize(user.CreatedAt)
	return user, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("publish event failed",
			zap.String("type", event.Type),
			zap.String("storage_id", event.StorageID),
			zap.Error(err))
	}
}

func checkItem(itemType, id string) error {
	if itemType != ItemFile && itemType != ItemFolder {
		return ErrInvalidItemType
	}
	if strings.TrimSpace(id) == "" {
		return ErrMissingID
	}
	return nil
}
