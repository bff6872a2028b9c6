package dto

// RegisterRequest 注册请求，referral_code 为邀请人的推荐码
type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8,max=64"`
	FullName     string `json:"full_name" binding:"required,max=100"`
	Phone        string `json:"phone" binding:"omitempty,max=20"`
	ReferralCode string `json:"referral_code" binding:"omitempty,max=20"`
}

// RegisterResponse 注册响应
type RegisterResponse struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone,omitempty"`
	ReferralCode string `json:"referral_code,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
}
