package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/playoga_server/internal/api/middleware"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/response"
	"github.com/qs3c/playoga_server/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateOrder 创建 Razorpay 订单
// POST /api/v1/payments/orders
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, service.ErrInvalidAmount.Error())
		return
	}

	resp, err := h.paymentService.CreateOrder(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Verify 校验支付签名并激活订阅
// POST /api/v1/payments/verify
func (h *PaymentHandler) Verify(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "Missing payment details")
		return
	}

	resp, err := h.paymentService.VerifyPayment(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// List 支付记录
// GET /api/v1/payments
func (h *PaymentHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.paymentService.ListPayments(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}
