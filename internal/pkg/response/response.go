package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 默认错误消息
const (
	MsgParamError  = "Invalid request"
	MsgAuthFailed  = "Unauthorized"
	MsgServerError = "An error occurred"
)

// ErrorBody 错误响应结构，客户端只拿到一条消息
type ErrorBody struct {
	Error string `json:"error"`
}

// Success 成功响应，data 直接作为响应体
func Success(c *gin.Context, data interface{}) {
	if data == nil {
		data = gin.H{}
	}
	c.JSON(http.StatusOK, data)
}

// Error 错误响应
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorBody{Error: message})
}

// ParamError 参数或业务校验错误
func ParamError(c *gin.Context, message string) {
	if message == "" {
		message = MsgParamError
	}
	Error(c, http.StatusBadRequest, message)
}

// AuthError 认证失败
func AuthError(c *gin.Context, message string) {
	if message == "" {
		message = MsgAuthFailed
	}
	Error(c, http.StatusUnauthorized, message)
}

// ServerError 下游或配置错误，细节只记日志，对外返回通用消息
func ServerError(c *gin.Context, message string) {
	if message == "" {
		message = MsgServerError
	}
	Error(c, http.StatusBadRequest, message)
}
