package storage

import (
	"context"
	"errors"
	"fmt"

	"meta-anchor/common"
	"meta-anchor/conf"
)

// Storage unified blob storage interface
type Storage interface {
	Save(key string, data []byte) error
	Get(key string) ([]byte, error)
	Exists(key string) bool
	Ping(ctx context.Context) error
}

var (
	ErrNotFound = fmt.Errorf("content %w", common.ErrNotFound)
	ErrInvalid  = errors.New("invalid storage configuration")
)

// NewStorage create blob storage instance by configuration
func NewStorage() (Storage, error) {
	storageType := conf.Cfg.Storage.Type

	switch storageType {
	case "local":
		return NewLocalStorage(conf.Cfg.Storage.Local.BasePath)
	case "oss":
		return NewOSSStorage(conf.Cfg.Storage.OSS.Endpoint, conf.Cfg.Storage.OSS.AccessKey,
			conf.Cfg.Storage.OSS.SecretKey, conf.Cfg.Storage.OSS.Bucket)
	case "s3":
		return NewS3Storage(conf.Cfg.Storage.S3.Region, conf.Cfg.Storage.S3.Endpoint,
			conf.Cfg.Storage.S3.AccessKey, conf.Cfg.Storage.S3.SecretKey, conf.Cfg.Storage.S3.Bucket)
	case "minio":
		return NewMinIOStorage(conf.Cfg.Storage.MinIO.Endpoint, conf.Cfg.Storage.MinIO.AccessKey,
			conf.Cfg.Storage.MinIO.SecretKey, conf.Cfg.Storage.MinIO.Bucket)
	default:
		// Default to local storage
		return NewLocalStorage(conf.Cfg.Storage.Local.BasePath)
	}
}
