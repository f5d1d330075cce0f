package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"rollcall/config"

	"golang.org/x/sys/unix"
)

type DiskStorage struct {
	Storage
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath string
	// MinFreeBytes makes Save fail with ErrInsufficientSpace once the disk is this full
	MinFreeBytes uint64
	dirs         map[string]bool
	dirsMutex    sync.Mutex
}

func NewDiskStorage(bucket *Bucket) *DiskStorage {
	return &DiskStorage{
		BasePath:     bucket.Path,
		Storage:      Storage{Bucket: *bucket},
		MinFreeBytes: uint64(config.MIN_FREE_SPACE_MB) << 20,
		dirs:         make(map[string]bool, 10),
	}
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) getFullPath(path string) string {
	return filepath.Join(s.BasePath, filepath.FromSlash(path))
}

func (s *DiskStorage) GetFreeSpace() (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(s.BasePath, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

func (s *DiskStorage) Save(ctx context.Context, path, mimeType string, reader io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fileName := s.getFullPath(path)
	if err := s.createDir(filepath.Dir(fileName)); err != nil {
		return 0, err
	}
	if s.MinFreeBytes > 0 {
		free, err := s.GetFreeSpace()
		if err != nil {
			return 0, err
		}
		if free < s.MinFreeBytes {
			return 0, fmt.Errorf("%w: %d MB left in %s", ErrInsufficientSpace, free>>20, s.BasePath)
		}
	}
	file, err := os.Create(fileName)
	if err != nil {
		return 0, err
	}
	result, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fileName)
	}
	return result, err
}

func (s *DiskStorage) Load(ctx context.Context, path string, writer io.Writer) (int64, error) {
	file, err := os.Open(s.getFullPath(path))
	if err != nil {
		return 0, err
	}
	defer file.Close()
	return io.Copy(writer, file)
}

func (s *DiskStorage) Delete(ctx context.Context, path string) error {
	return os.Remove(s.getFullPath(path))
}
