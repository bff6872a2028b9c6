package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/playoga_server/internal/pkg/response"
	"github.com/qs3c/playoga_server/internal/service"
)

// 可直接展示给用户的业务错误，统一返回 400
var userFacingErrors = []error{
	service.ErrEmailExists,
	service.ErrUserNotFound,
	service.ErrInvalidReferralCode,
	service.ErrSelfReferral,
	service.ErrReferralCodeConflict,
	service.ErrPaymentNotConfigured,
	service.ErrInvalidAmount,
	service.ErrOrderCreateFailed,
	service.ErrInvalidSignature,
	service.ErrOrderNotFound,
	service.ErrSubscriptionUpdate,
	service.ErrInvalidWithdrawalAmount,
	service.ErrWithdrawalBelowMinimum,
	service.ErrPayoutDetailsRequired,
	service.ErrInvalidIFSC,
	service.ErrInsufficientBalance,
	service.ErrPendingWithdrawal,
	service.ErrWithdrawalCreate,
	service.ErrInvalidVideoID,
	service.ErrVideoNotFound,
	service.ErrNoWatchProgress,
	service.ErrVideoNotCompleted,
	service.ErrPointsAwardFailed,
}

// respondError 将 service 错误映射为响应
// 未识别的错误只返回通用消息，细节挂到 gin.Context 上由日志中间件输出
func respondError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.AuthError(c, service.ErrInvalidCredentials.Error())
		return
	}
	for _, known := range userFacingErrors {
		if errors.Is(err, known) {
			// 使用哨兵错误本身的文案，包装进来的下游细节不外泄
			if err != known {
				_ = c.Error(err)
			}
			response.ParamError(c, known.Error())
			return
		}
	}

	_ = c.Error(err)
	response.ServerError(c, "")
}
