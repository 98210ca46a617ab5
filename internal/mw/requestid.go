package mw

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader 是请求 ID 的传递头。
const RequestIDHeader = "X-Request-ID"

const requestIDKey = "request_id"

// RequestID 沿用客户端传入的请求 ID，没有时生成一个 UUID，并写回响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID 读取当前请求的 ID，未经过 RequestID 中间件时返回空串。
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
