package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

// ErrObjectExists — по ключу уже лежит объект. Ключи write-once:
// коллизия — жёсткая ошибка, а не upsert.
var ErrObjectExists = errors.New("storage: object already exists at key")

// ObjectStore — хранилище байтов документов с адресацией по ключу.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Remove(ctx context.Context, key string) error
}

// ObjectKey строит детерминированный ключ хранения:
// users/{owner}/chats/{agent}/sources/{source}/{filename}.
// Имя файла очищается от путевых компонентов.
func ObjectKey(ownerID, agentID, sourceID, filename string) string {
	return fmt.Sprintf("users/%s/chats/%s/sources/%s/%s",
		ownerID, agentID, sourceID, path.Base(filename))
}

// GCSStore — реализация поверх Google Cloud Storage.
type GCSStore struct {
	bucket string
	client *storage.Client
	logger *zap.Logger
}

func NewGCSStore(ctx context.Context, bucket string, logger *zap.Logger) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to create GCS client: %w", err)
	}
	return &GCSStore{
		bucket: bucket,
		client: client,
		logger: logger.Named("gcs-store"),
	}, nil
}

// Put записывает объект с предусловием DoesNotExist: существующий
// объект никогда не перезаписывается.
func (s *GCSStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	obj := s.client.Bucket(s.bucket).Object(key).If(storage.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: failed to write object %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return fmt.Errorf("%w: %s", ErrObjectExists, key)
		}
		return fmt.Errorf("storage: failed to finalize object %s: %w", key, err)
	}

	s.logger.Debug("object stored", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}

// Remove удаляет объект. Отсутствие объекта считается успехом:
// текстовые источники байтов не имеют, а повторная зачистка
// не должна падать.
func (s *GCSStore) Remove(ctx context.Context, key string) error {
	err := s.client.Bucket(s.bucket).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("storage: failed to delete object %s: %w", key, err)
	}
	s.logger.Debug("object removed", zap.String("key", key))
	return nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
