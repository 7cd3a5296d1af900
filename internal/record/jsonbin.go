package record

import (
	"context"
	"fmt"
	"sync"

	"github.com/abduss/cloudbin/internal/config"
	"github.com/go-resty/resty/v2"
)

// binDocument is the single JSONBin document holding every user record.
type binDocument struct {
	Records map[string]User `json:"records"`
}

// JSONBinStore persists records in one hosted JSONBin bin. Reads fetch the
// latest version of the bin and writes replace it entirely.
type JSONBinStore struct {
	client *resty.Client
	binID  string
	// mu serialises read-modify-write of the bin within this process.
	mu sync.Mutex
}

// NewJSONBinStore builds a store talking to the JSONBin v3 API.
func NewJSONBinStore(cfg config.JSONBinConfig) *JSONBinStore {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("X-Master-Key", cfg.MasterKey)

	return &JSONBinStore{client: client, binID: cfg.BinID}
}

func (s *JSONBinStore) Get(ctx context.Context, storageID string) (User, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return User{}, err
	}
	user, ok := doc.Records[storageID]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *JSONBinStore) Create(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, exists := doc.Records[user.StorageID]; exists {
		return ErrAlreadyExists
	}
	doc.Records[user.StorageID] = user
	return s.save(ctx, doc)
}

func (s *JSONBinStore) Put(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, exists := doc.Records[user.StorageID]; !exists {
		return ErrNotFound
	}
	doc.Records[user.StorageID] = user
	return s.save(ctx, doc)
}

func (s *JSONBinStore) Ping(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

func (s *JSONBinStore) load(ctx context.Context) (binDocument, error) {
	var doc binDocument
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Bin-Meta", "false").
		SetPathParam("binID", s.binID).
		SetResult(&doc).
		Get("/b/{binID}/latest")
	if err != nil {
		return binDocument{}, fmt.Errorf("fetch bin: %w", err)
	}
	if resp.IsError() {
		return binDocument{}, fmt.Errorf("fetch bin: unexpected status %d", resp.StatusCode())
	}
	if doc.Records == nil {
		doc.Records = make(map[string]User)
	}
	return doc, nil
}

func (s *JSONBinStore) save(ctx context.Context, doc binDocument) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetPathParam("binID", s.binID).
		SetBody(doc).
		Put("/b/{binID}")
	if err != nil {
		return fmt.Errorf("update bin: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("update bin: unexpected status %d", resp.StatusCode())
	}
	return nil
}
