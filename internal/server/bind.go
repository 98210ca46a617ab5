package server

import (
	"errors"
	"io"

	"roomchat/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/goccy/go-json"
)

const maxBodyBytes = 64 << 10

var errTrailingData = errors.New("unexpected data after JSON body")

// bindStrict 把请求体解码为 obj：未知字段、类型不符、空 body 或多余内容都视为格式错误；
// binding:"required" 校验失败时返回 missingMsg。
func bindStrict(c *gin.Context, obj any, missingMsg string) error {
	dec := json.NewDecoder(io.LimitReader(c.Request.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		_ = c.Error(err)
		return service.Validation("Invalid request body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		_ = c.Error(errTrailingData)
		return service.Validation("Invalid request body")
	}
	if err := binding.Validator.ValidateStruct(obj); err != nil {
		return service.Validation(missingMsg)
	}
	return nil
}
