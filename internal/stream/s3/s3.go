// Package s3 是 stream.Reader/Writer 的对象存储实现。
//
// 转换代码不感知介质差异：把 FS 换成本包，编排与 Converter 一行都不用改。
package s3

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"glacium/internal/domain"
	"glacium/internal/stream"
)

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// Prefix 是 bucket 内的对象键前缀（可空）；RelPath 映射到 <prefix>/<rel>。
	Prefix string
}

type Store struct {
	client *minio.Client
	bucket string
	region string
	prefix string

	initOnce sync.Once
	initErr  error
}

var (
	_ stream.Reader = (*Store)(nil)
	_ stream.Writer = (*Store)(nil)
)

func New(cfg Config) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint 不能为空")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key / secret key 不能为空")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket 不能为空")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 s3 client 失败：%w", err)
	}

	return &Store{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
	}, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Open 返回对象的流式 ReadCloser（按需拉取，不整读进内存）。
func (s *Store) Open(ctx context.Context, meta domain.FileMeta) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(meta.RelPath), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject 是惰性的：缺失对象要在首次 Read 前暴露出来，Stat 一次换取确定性。
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, err
	}
	return obj, nil
}

// Write 流式上传到目标键；对象存储没有目录，"创建父级"天然满足。
func (s *Store) Write(ctx context.Context, meta domain.FileMeta, r io.Reader) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket：%w", err)
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.objectKey(meta.RelPath), r, -1, minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	return err
}

func (s *Store) objectKey(rel string) string {
	rel = filepath.ToSlash(rel)
	if s.prefix == "" {
		return rel
	}
	return path.Join(s.prefix, rel)
}
