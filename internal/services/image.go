package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudacct/accountsvc/internal/storage"
	"github.com/sirupsen/logrus"
)

// ImageService is a thin facade over the object store for per-user
// profile images. It knows nothing about verification; the HTTP layer
// gates access on the account's verified flag.
type ImageService struct {
	objects storage.ObjectStore
	log     *logrus.Entry
}

func NewImageService(objects storage.ObjectStore, logger *logrus.Logger) *ImageService {
	return &ImageService{
		objects: objects,
		log:     logger.WithField("component", "images"),
	}
}

// Put stores an image under "<accountID>/<filename>" and returns the
// object key.
func (s *ImageService) Put(ctx context.Context, accountID int64, filename string, data []byte) (string, error) {
	key := fmt.Sprintf("%d/%s", accountID, filename)
	contentType := http.DetectContentType(data)

	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDependency, err)
	}

	s.log.WithField("key", key).Info("image uploaded")
	return key, nil
}

// Delete removes an image by object key.
func (s *ImageService) Delete(ctx context.Context, key string) error {
	if err := s.objects.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrDependency, err)
	}

	s.log.WithField("key", key).Info("image deleted")
	return nil
}
