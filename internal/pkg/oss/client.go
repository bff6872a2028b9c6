package oss

import (
	"bytes"
	"fmt"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/qs3c/playoga_server/config"
)

type Client struct {
	bucket *oss.Bucket
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{bucket: bucket}, nil
}

// UploadInvoice 以私有 ACL 上传 HTML 收据，同一发票号覆盖写入，返回对象 key
func (c *Client) UploadInvoice(invoiceNumber string, data []byte) (string, error) {
	objectKey := InvoiceKey(invoiceNumber)

	err := c.bucket.PutObject(objectKey, bytes.NewReader(data),
		oss.ContentType("text/html; charset=utf-8"),
		oss.ObjectACL(oss.ACLPrivate))
	if err != nil {
		return "", fmt.Errorf("failed to upload invoice: %w", err)
	}

	return objectKey, nil
}

// GetSignedURL 生成带签名的临时访问URL（默认1小时有效）
func (c *Client) GetSignedURL(objectKey string, expireSeconds ...int64) (string, error) {
	expire := int64(3600)
	if len(expireSeconds) > 0 && expireSeconds[0] > 0 {
		expire = expireSeconds[0]
	}

	signedURL, err := c.bucket.SignURL(objectKey, oss.HTTPGet, expire)
	if err != nil {
		return "", fmt.Errorf("failed to generate signed URL: %w", err)
	}

	return signedURL, nil
}

// InvoiceKey 收据对象路径
func InvoiceKey(invoiceNumber string) string {
	return fmt.Sprintf("invoices/%s.html", invoiceNumber)
}
