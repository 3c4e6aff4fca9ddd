package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	minio "github.com/minio/minio-go/v7"
)

// S3Store 每个叶子路径对应一个对象.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ Store = (*S3Store)(nil)

// NewS3Store 创建 s3 后端，prefix 为对象键前缀.
func NewS3Store(client *minio.Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3Store) key(path string) string {
	if s.prefix == "" {
		return path
	}

	return s.prefix + "/" + path
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Get 实现 Store.
func (s *S3Store) Get(ctx context.Context, path string) ([]byte, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key(path), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}

		return nil, err
	}
	defer obj.Close()

	// GetObject 是惰性的，错误在首次读取时才出现
	b, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return b, nil
}

// Set 实现 Store.
func (s *S3Store) Set(ctx context.Context, path string, value []byte) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, s.bucket, s.key(path), bytes.NewReader(value), int64(len(value)),
		minio.PutObjectOptions{ContentType: "application/json"})

	return err
}

// Push 实现 Store.
func (s *S3Store) Push(ctx context.Context, parent string, value []byte) (string, error) {
	return push(ctx, s, parent, value)
}

// Remove 实现 Store.
func (s *S3Store) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	objects := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)

	go func() {
		defer close(objects)
		defer close(listErr)

		send := func(obj minio.ObjectInfo) bool {
			select {
			case objects <- obj:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(minio.ObjectInfo{Key: s.key(path)}) {
			return
		}

		for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
			Prefix:    s.key(path) + "/",
			Recursive: true,
		}) {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}

			if !send(obj) {
				return
			}
		}
	}()

	var errs []error
	for res := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		if res.Err != nil && !isNoSuchKey(res.Err) {
			errs = append(errs, res.Err)
		}
	}

	errs = append(errs, <-listErr)

	return errors.Join(errs...)
}

// Children 实现 Store.
func (s *S3Store) Children(ctx context.Context, path string) ([]Node, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	base := s.key(path) + "/"
	children := childSet{}

	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: base}) {
		if obj.Err != nil {
			return nil, obj.Err
		}

		rel := strings.TrimPrefix(obj.Key, base)

		// 非递归列举时公共前缀以 / 结尾
		if strings.HasSuffix(rel, "/") {
			children.add(rel, nil)
			continue
		}

		v, err := s.Get(ctx, path+"/"+rel)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}

			return nil, err
		}

		children.add(rel, v)
	}

	return children.sorted(), nil
}

// Close 实现 Store.
func (s *S3Store) Close() error {
	return nil
}
