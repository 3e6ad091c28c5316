package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
)

// MinioStore implements media.Store on a MinIO bucket.
type MinioStore struct {
	client     *minio.Client
	bucketName string
	region     string
	publicBase string
}

// NewMinio buat koneksi MinIO dan pastikan bucket ada
func NewMinio(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*MinioStore, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return &MinioStore{
		client:     cli,
		bucketName: bucket,
		region:     region,
		publicBase: fmt.Sprintf("%s://%s/%s", scheme, cli.EndpointURL().Host, bucket),
	}, nil
}

func (s *MinioStore) Put(ctx context.Context, key string, data []byte, contentType string) (media.Ref, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("minio put %s: %w", key, err)
	}
	// URL publik (bucket harus public-read), kalau private pakai presigned URL
	return media.Ref(s.publicBase + "/" + key), nil
}

func (s *MinioStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapErr(key, err)
	}
	return data, nil
}

func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return s.mapErr(key, err)
	}
	return nil
}

// Ping reports whether the bucket is reachable.
func (s *MinioStore) Ping(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucketName)
	return err
}

func (s *MinioStore) mapErr(key string, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s", media.ErrObjectNotFound, key)
	}
	return fmt.Errorf("minio %s: %w", key, err)
}
