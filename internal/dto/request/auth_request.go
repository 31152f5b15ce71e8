package request

// RegisterRequest 用户注册
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=2,max=32"`
	Password string `json:"password" binding:"required,min=6,max=64"`
	Avatar   string `json:"avatar"`
}

// LoginRequest 用户登录
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest 刷新访问令牌
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}
