package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/playoga_server/internal/api/middleware"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/response"
	"github.com/qs3c/playoga_server/internal/service"
)

type WalletHandler struct {
	walletService *service.WalletService
}

func NewWalletHandler(walletService *service.WalletService) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// Overview 钱包余额、推荐统计、佣金与提现记录
// GET /api/v1/wallet
func (h *WalletHandler) Overview(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.walletService.Overview(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// RequestWithdrawal 提交提现申请
// POST /api/v1/wallet/withdrawals
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, service.ErrInvalidWithdrawalAmount.Error())
		return
	}

	resp, err := h.walletService.RequestWithdrawal(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}
