package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/razorpay"
	"github.com/qs3c/playoga_server/internal/testutil"
)

func signedVerify(orderID, paymentID string) dto.VerifyPaymentRequest {
	return dto.VerifyPaymentRequest{
		RazorpayOrderID:   orderID,
		RazorpayPaymentID: paymentID,
		RazorpaySignature: razorpay.Signature(testKeySecret, orderID, paymentID),
	}
}

func TestPaymentHandler_CreateOrder(t *testing.T) {
	env := setupHandlerEnv(t)
	_, token := env.userWithToken(t, testutil.WithFullName("Asha Rao"))
	testutil.TestCoupon(t, env.db, "YOGA100")

	t.Run("with coupon", func(t *testing.T) {
		w := performAuthRequest(env.router, "POST", "/api/v1/payments/orders", token, dto.CreateOrderRequest{
			Amount:     decimal.NewFromInt(999),
			CouponCode: "YOGA100",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.CreateOrderResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(94395), resp.Amount)
		assert.Equal(t, "INR", resp.Currency)
		assert.Equal(t, "rzp_test_key", resp.KeyID)
		assert.Equal(t, "Asha Rao", resp.Prefill.Name)
		assert.Equal(t, "44.95", resp.Notes.GSTAmount.String())

		require.Len(t, env.orders, 1)
		assert.Equal(t, int64(94395), env.orders[0].Amount)
	})

	t.Run("invalid amount", func(t *testing.T) {
		w := performAuthRequest(env.router, "POST", "/api/v1/payments/orders", token, dto.CreateOrderRequest{
			Amount: decimal.Zero,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid amount", parseError(t, w))
	})

	t.Run("unauthorized", func(t *testing.T) {
		w := performRequest(env.router, "POST", "/api/v1/payments/orders", dto.CreateOrderRequest{
			Amount: decimal.NewFromInt(999),
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestPaymentHandler_Verify_WithReferral(t *testing.T) {
	env := setupHandlerEnv(t)

	referrer, referrerToken := env.userWithToken(t, testutil.WithReferralCode("ASHA2024"))
	buyer, buyerToken := env.userWithToken(t)
	testutil.TestReferral(t, env.db, referrer.ID, buyer.ID, model.ReferralPending)

	w := performAuthRequest(env.router, "POST", "/api/v1/payments/orders", buyerToken, dto.CreateOrderRequest{
		Amount: decimal.NewFromInt(999),
	})
	require.Equal(t, http.StatusOK, w.Code)
	var order dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, int64(104895), order.Amount)

	req := signedVerify(order.OrderID, "pay_handler1")
	w = performAuthRequest(env.router, "POST", "/api/v1/payments/verify", buyerToken, req)
	require.Equal(t, http.StatusOK, w.Code)

	var verified dto.VerifyPaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verified))
	assert.True(t, verified.Success)
	assert.Equal(t, model.SubscriptionActive, verified.Subscription.Status)
	assert.True(t, strings.HasPrefix(verified.InvoiceNumber, "INV"))

	// 重复验签返回同一张发票，佣金不重复入账
	w = performAuthRequest(env.router, "POST", "/api/v1/payments/verify", buyerToken, req)
	require.Equal(t, http.StatusOK, w.Code)
	var again dto.VerifyPaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, verified.InvoiceNumber, again.InvoiceNumber)

	w = performAuthRequest(env.router, "GET", "/api/v1/wallet", referrerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var overview dto.WalletOverview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &overview))
	assert.True(t, decimal.NewFromInt(50).Equal(overview.Balance))
	assert.Equal(t, "ASHA2024", overview.ReferralCode)
	assert.Equal(t, int64(1), overview.Stats.Completed)
	require.Len(t, overview.Commissions, 1)

	w = performAuthRequest(env.router, "GET", "/api/v1/subscription", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sub dto.SubscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.True(t, sub.HasActiveSubscription)

	w = performAuthRequest(env.router, "GET", "/api/v1/payments", buyerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list dto.PaymentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Payments, 1)
	assert.Equal(t, verified.InvoiceNumber, list.Payments[0].InvoiceNumber)
}

func TestPaymentHandler_Verify_Rejected(t *testing.T) {
	env := setupHandlerEnv(t)
	_, token := env.userWithToken(t)
	_, otherToken := env.userWithToken(t)

	w := performAuthRequest(env.router, "POST", "/api/v1/payments/orders", token, dto.CreateOrderRequest{
		Amount: decimal.NewFromInt(999),
	})
	require.Equal(t, http.StatusOK, w.Code)
	var order dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))

	t.Run("bad signature", func(t *testing.T) {
		req := signedVerify(order.OrderID, "pay_1")
		req.RazorpaySignature = strings.Repeat("0", 64)

		w := performAuthRequest(env.router, "POST", "/api/v1/payments/verify", token, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid payment signature", parseError(t, w))
	})

	t.Run("another user's order", func(t *testing.T) {
		w := performAuthRequest(env.router, "POST", "/api/v1/payments/verify", otherToken, signedVerify(order.OrderID, "pay_2"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Payment order not found", parseError(t, w))
	})

	t.Run("missing fields", func(t *testing.T) {
		w := performAuthRequest(env.router, "POST", "/api/v1/payments/verify", token, map[string]string{
			"razorpay_order_id": order.OrderID,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Missing payment details", parseError(t, w))
	})

	// 以上失败都不会激活订阅
	w = performAuthRequest(env.router, "GET", "/api/v1/subscription", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sub dto.SubscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sub))
	assert.Equal(t, model.SubscriptionFree, sub.Status)
	assert.False(t, sub.HasActiveSubscription)
}
