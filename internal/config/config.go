package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Port           string
	DatabaseDriver string
	DatabaseDSN    string
	JWTSecret      string
	Env            string
	LogLevel       string
	CORSOrigins    []string
}

// 曾经作为兜底值出现过的占位密钥，任何环境下都拒绝使用。
var placeholderSecrets = map[string]bool{
	"dev-secret-change-me": true,
	"fallback-secret-key":  true,
	"secret":               true,
	"changeme":             true,
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// Load 从环境变量读取配置。JWT_SECRET 没有默认值，缺失时由 Validate 拒绝启动。
func Load() Config {
	return Config{
		Port:           getenv("APP_PORT", "8080"),
		DatabaseDriver: getenv("DATABASE_DRIVER", "postgres"),
		DatabaseDSN:    getenv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=chatroom port=5432 sslmode=disable TimeZone=UTC"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		Env:            getenv("APP_ENV", "dev"),
		LogLevel:       os.Getenv("LOG_LEVEL"),
		CORSOrigins:    splitList(os.Getenv("CORS_ORIGINS")),
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate 在启动阶段检查配置，签名密钥缺失或为占位值时直接失败。
func Validate(cfg Config) error {
	if cfg.Port == "" {
		return errors.New("APP_PORT must not be empty")
	}
	switch cfg.DatabaseDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("DATABASE_DRIVER %q is not supported", cfg.DatabaseDriver)
	}
	if cfg.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must not be empty")
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if placeholderSecrets[cfg.JWTSecret] {
		return errors.New("JWT_SECRET is a placeholder value")
	}
	return nil
}

// IsProd 决定 cookie 是否带 Secure 标记。
func (c Config) IsProd() bool { return c.Env == "prod" }
