package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/playoga_server/internal/api/middleware"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/response"
	"github.com/qs3c/playoga_server/internal/service"
)

type ReferralHandler struct {
	referralService *service.ReferralService
}

func NewReferralHandler(referralService *service.ReferralService) *ReferralHandler {
	return &ReferralHandler{referralService: referralService}
}

// GenerateCode 获取或生成推荐码，重复调用返回同一个码
// POST /api/v1/referrals/code
func (h *ReferralHandler) GenerateCode(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	code, err := h.referralService.EnsureCode(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, &dto.ReferralCodeResponse{
		ReferralCode: code,
		ReferralLink: h.referralService.Link(code),
	})
}
