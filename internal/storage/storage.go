package storage

import (
	"context"
	"fmt"
)

// Archive 保存支付回调原文，返回可定位的地址
type Archive interface {
	Put(ctx context.Context, key string, body []byte) (string, error)
}

// Options 归档后端配置
type Options struct {
	Backend            string
	LocalPath          string
	S3Region           string
	S3Bucket           string
	GCSProjectID       string
	GCSBucketName      string
	GCSCredentialsFile string
}

// New 按配置创建归档后端，默认写本地磁盘
func New(opts Options) (Archive, error) {
	switch opts.Backend {
	case "", "local":
		return NewLocalStorage(opts.LocalPath)
	case "s3":
		return NewS3Client(opts.S3Region, opts.S3Bucket)
	case "gcs":
		return NewGCSClient(opts.GCSProjectID, opts.GCSBucketName, opts.GCSCredentialsFile)
	}
	return nil, fmt.Errorf("unknown archive backend %q", opts.Backend)
}
