package server

import (
	"net/http"

	"roomchat/internal/api"
	"roomchat/internal/mw"
	"roomchat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const internalErrorMsg = "Internal server error"

func ok(c *gin.Context, msg string, data any) {
	c.JSON(http.StatusOK, api.Envelope{Message: msg, Code: 0, Data: data})
}

// fail 是所有 handler 唯一的错误出口。内部错误只记录日志，响应体不带任何细节。
func fail(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := kind.Status()
	msg := err.Error()
	if kind == service.KindInternal {
		log.Error().Err(err).
			Str("request_id", mw.GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("request failed")
		msg = internalErrorMsg
	}
	c.AbortWithStatusJSON(status, api.Envelope{Message: msg, Code: status, Data: nil})
}

// recovery 把 panic 转换为统一的 500 响应。
func recovery(c *gin.Context, recovered any) {
	log.Error().
		Interface("panic", recovered).
		Str("request_id", mw.GetRequestID(c)).
		Str("path", c.Request.URL.Path).
		Msg("panic recovered")
	c.AbortWithStatusJSON(http.StatusInternalServerError, api.Envelope{Message: internalErrorMsg, Code: http.StatusInternalServerError})
}
