package record

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// objectStore is the subset of the MinIO API the record store needs.
type objectStore interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// MinIOStore keeps one JSON object per user record in an S3-compatible bucket.
// Create checks for an existing object first; two racing creators may both win.
type MinIOStore struct {
	objects objectStore
	bucket  string
}

// NewMinIOStore adapts a MinIO client into a record store.
func NewMinIOStore(client *minio.Client, bucket string) *MinIOStore {
	return &MinIOStore{objects: minioObjects{client: client}, bucket: bucket}
}

func objectName(storageID string) string {
	return "records/" + storageID + ".json"
}

func (s *MinIOStore) Get(ctx context.Context, storageID string) (User, error) {
	reader, err := s.objects.GetObject(ctx, s.bucket, objectName(storageID), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("fetch storage object: %w", err)
	}
	defer reader.Close()

	var user User
	if err := json.NewDecoder(reader).Decode(&user); err != nil {
		if isNoSuchKey(err) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("decode storage object: %w", err)
	}
	return user, nil
}

func (s *MinIOStore) Create(ctx context.Context, user User) error {
	exists, err := s.exists(ctx, user.StorageID)
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyExists
	}
	return s.write(ctx, user)
}

func (s *MinIOStore) Put(ctx context.Context, user User) error {
	exists, err := s.exists(ctx, user.StorageID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return s.write(ctx, user)
}

func (s *MinIOStore) Ping(ctx context.Context) error {
	ok, err := s.objects.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bucket %q missing", s.bucket)
	}
	return nil
}

func (s *MinIOStore) exists(ctx context.Context, storageID string) (bool, error) {
	_, err := s.objects.StatObject(ctx, s.bucket, objectName(storageID), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat storage object: %w", err)
}

func (s *MinIOStore) write(ctx context.Context, user User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode storage object: %w", err)
	}
	_, err = s.objects.PutObject(ctx, s.bucket, objectName(user.StorageID), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("store storage object: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// minioObjects adapts *minio.Client to objectStore.
type minioObjects struct {
	client *minio.Client
}

func (m minioObjects) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return m.client.StatObject(ctx, bucketName, objectName, opts)
}

func (m minioObjects) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	// GetObject is lazy; Stat surfaces a missing key before decoding.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, err
	}
	return obj, nil
}

func (m minioObjects) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return m.client.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}

func (m minioObjects) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return m.client.BucketExists(ctx, bucketName)
}
