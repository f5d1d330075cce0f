package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"rollcall/config"
	"rollcall/db"

	"go.uber.org/zap"
)

var ErrInsufficientSpace = errors.New("not enough free space in bucket")

type StorageAPI interface {
	Save(ctx context.Context, path, mimeType string, reader io.Reader) (int64, error)
	Load(ctx context.Context, path string, writer io.Writer) (int64, error)
	Delete(ctx context.Context, path string) error
	GetBucket() *Bucket
}

type Storage struct {
	Bucket Bucket
}

func (s *Storage) GetBucket() *Bucket {
	return &s.Bucket
}

var (
	cachedStorage []StorageAPI
)

// Init loads all buckets, creating a disk bucket in config.DEFAULT_BUCKET_DIR when there are none
func Init() {
	if err := db.Instance.AutoMigrate(&Bucket{}); err != nil {
		panic(err)
	}
	var buckets []Bucket
	if err := db.Instance.Find(&buckets).Error; err != nil {
		panic(err)
	}
	if len(buckets) == 0 {
		bucket := Bucket{Name: "default", StorageType: StorageTypeFile, Path: config.DEFAULT_BUCKET_DIR}
		if err := bucket.Create(); err != nil {
			panic(err)
		}
		zap.S().Infof("Created default bucket in %s", bucket.Path)
		buckets = append(buckets, bucket)
	}
	zap.S().Infof("Storage Buckets found: %d", len(buckets))

	cachedStorage = []StorageAPI{}
	for _, bucket := range buckets {
		zap.S().Debugf("Bucket: %d %s (type %d)", bucket.ID, bucket.Name, bucket.StorageType)
		var storage StorageAPI
		switch bucket.StorageType {
		case StorageTypeFile:
			storage = NewDiskStorage(&bucket)
		case StorageTypeS3:
			storage = NewS3Storage(&bucket)
		default:
			panic(fmt.Sprintf("Storage type unavailable for Bucket %d", bucket.ID))
		}
		cachedStorage = append(cachedStorage, storage)
	}
}

// GetDefaultStorage prefers a disk bucket
func GetDefaultStorage() StorageAPI {
	if len(cachedStorage) == 0 {
		panic("no storage available")
	}
	for _, s := range cachedStorage {
		if s.GetBucket().StorageType == StorageTypeFile {
			return s
		}
	}
	return cachedStorage[0]
}

// DefaultImageStore writes to the default bucket and reads from any known bucket
func DefaultImageStore() *ImageStore {
	def := GetDefaultStorage()
	all := []StorageAPI{def}
	for _, s := range cachedStorage {
		if s != def {
			all = append(all, s)
		}
	}
	return NewImageStore(config.IMAGE_PATH_PATTERN, all...)
}
