package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/playoga_server/internal/api/middleware"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/response"
	"github.com/qs3c/playoga_server/internal/service"
)

type PointsHandler struct {
	pointsService *service.PointsService
}

func NewPointsHandler(pointsService *service.PointsService) *PointsHandler {
	return &PointsHandler{pointsService: pointsService}
}

// Award 看完视频领取瑜伽积分
// POST /api/v1/points/award
func (h *PointsHandler) Award(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.AwardPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "Video ID is required")
		return
	}

	resp, err := h.pointsService.Award(c.Request.Context(), userID, req.VideoID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}

// Total 积分总数
// GET /api/v1/points
func (h *PointsHandler) Total(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	resp, err := h.pointsService.Total(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, resp)
}
