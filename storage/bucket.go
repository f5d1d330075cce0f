package storage

import (
	"os"
	"strings"

	"rollcall/db"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

type StorageType uint8

const (
	StorageTypeFile StorageType = 0
	StorageTypeS3   StorageType = 1
)

type Bucket struct {
	ID            uint64 `gorm:"primaryKey"`
	CreatedAt     int
	UpdatedAt     int
	Name          string `gorm:"type:varchar(200)"`
	StorageType   StorageType
	Path          string // Path on a drive or a prefix in a S3 bucket
	Endpoint      string `gorm:"type:varchar(300)"` // S3 compatible endpoint, empty for AWS
	Region        string `gorm:"type:varchar(50)"`
	SSEEncryption string `gorm:"type:varchar(50)"`
	AuthDetails   string // Authentication details. In case of S3 bucket - "key:secret"
}

func (b *Bucket) Create() error {
	if err := db.Instance.Create(b).Error; err != nil {
		return err
	}
	if b.StorageType == StorageTypeFile {
		return os.MkdirAll(b.Path, 0777)
	}
	return nil
}

// GetRemotePath prefixes path with the bucket path (if any)
func (b *Bucket) GetRemotePath(path string) string {
	prefix := strings.Trim(b.Path, "/")
	if prefix == "" {
		return path
	}
	return prefix + "/" + path
}

func (b *Bucket) CreateSVC() *s3.S3 {
	cfg := aws.NewConfig().WithRegion(b.Region)
	if b.Endpoint != "" {
		cfg = cfg.WithEndpoint(b.Endpoint).WithS3ForcePathStyle(true)
	}
	if key, secret, ok := strings.Cut(b.AuthDetails, ":"); ok {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(key, secret, ""))
	}
	return s3.New(session.Must(session.NewSession(cfg)))
}
