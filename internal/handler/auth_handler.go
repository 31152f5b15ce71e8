package handler

import (
	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/service/user"

	"github.com/gin-gonic/gin"
)

// AuthHandler 注册/登录/令牌刷新
type AuthHandler struct {
	users *user.Service
}

func NewAuthHandler(users *user.Service) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req request.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	resp, err := h.users.Register(&req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, resp)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req request.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	resp, err := h.users.Login(&req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, resp)
}

// Refresh POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req request.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		FailParam(c, translateErr(err))
		return
	}
	resp, err := h.users.Refresh(&req)
	if err != nil {
		Fail(c, err)
		return
	}
	Ok(c, resp)
}
