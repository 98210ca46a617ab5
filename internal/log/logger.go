package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 配置全局 zerolog。level 为空或无法解析时，dev 使用 debug，其余环境使用 info。
func Init(env, level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(parseLevel(env, level))
	log.Logger = New(os.Stdout, env)
}

// New 构造一个 logger：dev 环境输出彩色控制台格式，其余环境输出带 service 字段的 JSON。
func New(w io.Writer, env string) zerolog.Logger {
	if env == "dev" {
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return zerolog.New(cw).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Str("service", "roomchat").Logger()
}

func parseLevel(env, level string) zerolog.Level {
	if level != "" {
		if l, err := zerolog.ParseLevel(strings.ToLower(level)); err == nil && l != zerolog.NoLevel {
			return l
		}
	}
	if env == "dev" {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
