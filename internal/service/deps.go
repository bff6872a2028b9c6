package service

import (
	"context"
	"time"

	"github.com/qs3c/playoga_server/internal/pkg/pubsub"
	"github.com/qs3c/playoga_server/internal/pkg/queue"
	"github.com/qs3c/playoga_server/internal/pkg/razorpay"
)

// OrderGateway 支付网关下单
type OrderGateway interface {
	Configured() bool
	KeyID() string
	CreateOrder(ctx context.Context, req *razorpay.OrderRequest) (*razorpay.Order, error)
}

// InvoiceStore 收据归档，上传返回对象 key，访问时再签名
type InvoiceStore interface {
	UploadInvoice(invoiceNumber string, data []byte) (string, error)
	GetSignedURL(objectKey string, expireSeconds ...int64) (string, error)
}

// ReceiptMailer 收据邮件
type ReceiptMailer interface {
	Enabled() bool
	SendReceipt(to, invoiceNumber string, html []byte) error
}

// EventPublisher 用户事件推送
type EventPublisher interface {
	Publish(ctx context.Context, evt *pubsub.Event) error
}

// TaskQueue 结算任务队列
type TaskQueue interface {
	Push(ctx context.Context, msg *queue.SettlementMessage) error
	Schedule(ctx context.Context, msg *queue.SettlementMessage, at time.Time) error
	PromoteDue(ctx context.Context, now time.Time) (int, error)
}
