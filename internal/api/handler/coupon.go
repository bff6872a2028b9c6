package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/response"
	"github.com/qs3c/playoga_server/internal/service"
)

type CouponHandler struct {
	couponService *service.CouponService
}

func NewCouponHandler(couponService *service.CouponService) *CouponHandler {
	return &CouponHandler{couponService: couponService}
}

// Validate 校验优惠券，无效券同样返回 200 与 valid=false
// 请求体错误或缺少 code 返回 400
// POST /api/v1/coupons/validate
func (h *CouponHandler) Validate(c *gin.Context) {
	var req dto.ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "")
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		response.ParamError(c, service.ErrCouponCodeRequired.Error())
		return
	}

	response.Success(c, h.couponService.Validate(c.Request.Context(), &req))
}
