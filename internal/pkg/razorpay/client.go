// Package razorpay 订单接口与支付签名校验
package razorpay

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/qs3c/playoga_server/config"
)

var ErrNotConfigured = errors.New("razorpay credentials not configured")

// OrderRequest 创建订单参数，Amount 为最小货币单位
type OrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order 网关订单
type Order struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

// Client 基于官方 SDK 的订单客户端
type Client struct {
	keyID     string
	keySecret string
	sdk       *rzp.Client
}

func NewClient(cfg *config.RazorpayConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	sdk := rzp.NewClient(cfg.KeyID, cfg.KeySecret)
	rzp.Request.HTTPClient = &http.Client{Timeout: timeout}
	if cfg.BaseURL != "" {
		rzp.Request.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return &Client{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		sdk:       sdk,
	}
}

// KeyID 前端收银台使用的公钥
func (c *Client) KeyID() string {
	return c.keyID
}

// Configured 密钥是否齐全
func (c *Client) Configured() bool {
	return c.keyID != "" && c.keySecret != ""
}

// CreateOrder POST /v1/orders
// SDK 不接收 context，请求时长由 HTTP 客户端超时约束
func (c *Client) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}

	order := decodeOrder(body)
	if order.ID == "" {
		return nil, errors.New("razorpay order without id")
	}
	return order, nil
}

func decodeOrder(body map[string]interface{}) *Order {
	order := &Order{
		ID:        stringField(body, "id"),
		Entity:    stringField(body, "entity"),
		Amount:    intField(body, "amount"),
		Currency:  stringField(body, "currency"),
		Receipt:   stringField(body, "receipt"),
		Status:    stringField(body, "status"),
		CreatedAt: intField(body, "created_at"),
	}
	if notes, ok := body["notes"].(map[string]interface{}); ok {
		order.Notes = make(map[string]string, len(notes))
		for k, v := range notes {
			if s, ok := v.(string); ok {
				order.Notes[k] = s
			}
		}
	}
	return order
}

func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}

// intField JSON 数字解码为 float64
func intField(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Signature hex(HMAC-SHA256(secret, orderID|paymentID))
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature 校验收银台回传的签名
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, strings.ToLower(signature), secret)
}
