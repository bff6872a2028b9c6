package invoice

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator(t *testing.T) {
	gen, err := NewGenerator(1)
	require.NoError(t, err)
	gen.now = func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) }

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		num := gen.Next()
		assert.True(t, strings.HasPrefix(num, "INV2603"), num)
		_, dup := seen[num]
		assert.False(t, dup, "duplicate invoice number %s", num)
		seen[num] = struct{}{}
	}
}

func TestNewGeneratorInvalidNode(t *testing.T) {
	_, err := NewGenerator(5000)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	html, err := Render(&Receipt{
		InvoiceNumber:     "INV2603123",
		CustomerName:      "Asha <script>",
		CustomerEmail:     "asha@example.com",
		PlanName:          "Premium Yearly",
		Currency:          "INR",
		Price:             decimal.NewFromInt(999),
		Discount:          decimal.NewFromInt(100),
		BaseAmount:        decimal.NewFromInt(899),
		GSTAmount:         decimal.RequireFromString("44.95"),
		TotalAmount:       decimal.RequireFromString("943.95"),
		RazorpayPaymentID: "pay_1",
		PaidAt:            time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		ExpiresAt:         time.Date(2027, 3, 15, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	body := string(html)
	assert.Contains(t, body, "INV2603123")
	assert.Contains(t, body, "INR 943.95")
	assert.Contains(t, body, "INR 44.95")
	assert.Contains(t, body, "- INR 100.00")
	assert.Contains(t, body, "15 Mar 2027")
	assert.NotContains(t, body, "<script>")
}

func TestRenderWithoutDiscount(t *testing.T) {
	html, err := Render(&Receipt{
		InvoiceNumber: "INV2603124",
		Currency:      "INR",
		Price:         decimal.NewFromInt(999),
		BaseAmount:    decimal.NewFromInt(999),
		GSTAmount:     decimal.RequireFromString("49.95"),
		TotalAmount:   decimal.RequireFromString("1048.95"),
	})
	require.NoError(t, err)
	assert.NotContains(t, string(html), "Discount")
	assert.Contains(t, string(html), "INR 1048.95")
}
