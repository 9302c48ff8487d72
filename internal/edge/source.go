package edge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var ErrAssetNotFound = errors.New("edge: asset not found")

// AssetInfo describes an opened asset. ContentType may be empty.
type AssetInfo struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Source serves the files of the client bundle by slash separated name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, AssetInfo, error)
}

// cleanName turns a request path into a source name without leading slash.
// It reports false for names escaping the root.
func cleanName(name string) (string, bool) {
	cleaned := strings.TrimPrefix(path.Clean("/"+name), "/")
	if cleaned == "" || cleaned == "." {
		return "", false
	}
	return cleaned, true
}

// DirSource serves assets from a local directory.
type DirSource struct {
	Root string
}

func (d DirSource) Open(_ context.Context, name string) (io.ReadCloser, AssetInfo, error) {
	cleaned, ok := cleanName(name)
	if !ok {
		return nil, AssetInfo{}, ErrAssetNotFound
	}
	file, err := os.Open(filepath.Join(d.Root, filepath.FromSlash(cleaned)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, AssetInfo{}, ErrAssetNotFound
	}
	if err != nil {
		return nil, AssetInfo{}, fmt.Errorf("open asset %s: %w", cleaned, err)
	}
	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, AssetInfo{}, fmt.Errorf("stat asset %s: %w", cleaned, err)
	}
	if stat.IsDir() {
		_ = file.Close()
		return nil, AssetInfo{}, ErrAssetNotFound
	}
	return file, AssetInfo{Size: stat.Size(), ModTime: stat.ModTime()}, nil
}

// BucketSource serves assets from an S3 compatible bucket, objects keyed by
// Prefix plus the asset name.
type BucketSource struct {
	client *minio.Client
	bucket string
	prefix string
}

type BucketConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
	Bucket    string
	Prefix    string
}

func NewBucketSource(cfg BucketConfig) (*BucketSource, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("edge: bucket name is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &BucketSource{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

func (b *BucketSource) Open(ctx context.Context, name string) (io.ReadCloser, AssetInfo, error) {
	cleaned, ok := cleanName(name)
	if !ok {
		return nil, AssetInfo{}, ErrAssetNotFound
	}
	key := b.prefix + cleaned

	object, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, AssetInfo{}, bucketError(key, err)
	}
	stat, err := object.Stat()
	if err != nil {
		_ = object.Close()
		return nil, AssetInfo{}, bucketError(key, err)
	}
	return object, AssetInfo{Size: stat.Size, ContentType: stat.ContentType, ModTime: stat.LastModified}, nil
}

func bucketError(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return ErrAssetNotFound
	}
	return fmt.Errorf("get object %s: %w", key, err)
}
