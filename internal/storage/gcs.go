package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSClient struct {
	client     *storage.Client
	bucketName string
}

func NewGCSClient(projectID, bucketName, credentialsFile string) (*GCSClient, error) {
	ctx := context.Background()
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("创建 GCS 客户端失败(project=%s): %w", projectID, err)
	}

	return &GCSClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (c *GCSClient) Put(ctx context.Context, key string, body []byte) (string, error) {
	writer := c.client.Bucket(c.bucketName).Object(key).NewWriter(ctx)
	writer.ContentType = "application/json"

	if _, err := writer.Write(body); err != nil {
		writer.Close()
		return "", err
	}
	// Close 才真正完成上传
	if err := writer.Close(); err != nil {
		return "", err
	}

	return fmt.Sprintf("gs://%s/%s", c.bucketName, key), nil
}
