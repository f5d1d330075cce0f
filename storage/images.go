package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownImage = errors.New("unknown image reference")

// ImageStore saves check-in and enrollment JPEGs. A reference is "<bucket id>:<path>"
// so images stay readable after the default bucket changes.
type ImageStore struct {
	pattern  string
	storages []StorageAPI
}

// NewImageStore writes into the first storage. pattern may use <kind>, <year>, <month>, <day> and <id>.
func NewImageStore(pattern string, storages ...StorageAPI) *ImageStore {
	return &ImageStore{pattern: pattern, storages: storages}
}

func (s *ImageStore) path(kind string, now time.Time) string {
	return strings.NewReplacer(
		"<kind>", kind,
		"<year>", now.Format("2006"),
		"<month>", now.Format("01"),
		"<day>", now.Format("02"),
		"<id>", uuid.NewString(),
	).Replace(s.pattern) + ".jpg"
}

func (s *ImageStore) Store(ctx context.Context, kind string, data []byte) (string, error) {
	if len(s.storages) == 0 {
		return "", errors.New("no image storage configured")
	}
	target := s.storages[0]
	path := s.path(kind, time.Now())
	if _, err := target.Save(ctx, path, "image/jpeg", bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("save image %s: %w", path, err)
	}
	return strconv.FormatUint(target.GetBucket().ID, 10) + ":" + path, nil
}

func (s *ImageStore) resolve(ref string) (StorageAPI, string, error) {
	id, path, ok := strings.Cut(ref, ":")
	if !ok || path == "" || strings.Contains(path, "..") {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownImage, ref)
	}
	bucketID, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownImage, ref)
	}
	for _, storage := range s.storages {
		if storage.GetBucket().ID == bucketID {
			return storage, path, nil
		}
	}
	return nil, "", fmt.Errorf("%w: bucket %d", ErrUnknownImage, bucketID)
}

func (s *ImageStore) Load(ctx context.Context, ref string, w io.Writer) (int64, error) {
	storage, path, err := s.resolve(ref)
	if err != nil {
		return 0, err
	}
	return storage.Load(ctx, path, w)
}

func (s *ImageStore) Delete(ctx context.Context, ref string) error {
	storage, path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	return storage.Delete(ctx, path)
}
