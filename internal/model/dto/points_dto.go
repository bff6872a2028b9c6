package dto

// AwardPointsRequest 领取视频积分
type AwardPointsRequest struct {
	VideoID string `json:"videoId" binding:"required"`
}

// AwardPointsResponse 领取结果
type AwardPointsResponse struct {
	Success bool   `json:"success"`
	Points  int    `json:"points"`
	Message string `json:"message"`
}

// PointsTotalResponse 积分总数
type PointsTotalResponse struct {
	Total int64 `json:"total"`
}
