package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

// OSSStorage Alibaba Cloud OSS storage
type OSSStorage struct {
	bucket *oss.Bucket
}

// NewOSSStorage create OSS storage instance
func NewOSSStorage(endpoint, accessKey, secretKey, bucketName string) (*OSSStorage, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" || bucketName == "" {
		return nil, ErrInvalid
	}

	client, err := oss.New(endpoint, accessKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create oss client: %w", err)
	}

	bucket, err := client.Bucket(bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &OSSStorage{
		bucket: bucket,
	}, nil
}

// Save save file to OSS
func (s *OSSStorage) Save(key string, data []byte) error {
	if err := s.bucket.PutObject(key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload to oss: %w", err)
	}
	return nil
}

// Get get file from OSS
func (s *OSSStorage) Get(key string) ([]byte, error) {
	body, err := s.bucket.GetObject(key)
	if err != nil {
		var ossErr oss.ServiceError
		if errors.As(err, &ossErr) && ossErr.StatusCode == 404 {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get from oss: %w", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read oss object: %w", err)
	}
	return data, nil
}

// Exists check if file exists in OSS
func (s *OSSStorage) Exists(key string) bool {
	exists, err := s.bucket.IsObjectExist(key)
	if err != nil {
		return false
	}
	return exists
}

// Ping checks the bucket is reachable
func (s *OSSStorage) Ping(ctx context.Context) error {
	exists, err := s.bucket.Client.IsBucketExist(s.bucket.BucketName)
	if err != nil {
		return fmt.Errorf("oss bucket %s unavailable: %w", s.bucket.BucketName, err)
	}
	if !exists {
		return fmt.Errorf("oss bucket %s does not exist", s.bucket.BucketName)
	}
	return nil
}
