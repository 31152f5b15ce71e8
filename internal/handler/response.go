// Package handler HTTP 接口层
package handler

import (
	"net/http"

	"pulse_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
)

// Response 统一响应信封
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Ok 成功响应
func Ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errorx.CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败响应，HTTP 状态恒为 200，业务状态放 code
func Fail(c *gin.Context, err error) {
	c.JSON(http.StatusOK, Response{
		Code:    errorx.GetCode(err),
		Message: err.Error(),
	})
}

// FailParam 参数校验失败
func FailParam(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, Response{
		Code:    errorx.CodeInvalidParam,
		Message: msg,
	})
}

// currentUser 取 JWT 中间件写入的用户标识
func currentUser(c *gin.Context) string {
	return c.GetString("user_id")
}
