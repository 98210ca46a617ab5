package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"roomchat/internal/api"
	"roomchat/internal/models"
	"roomchat/internal/mw"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CookieName 是保存会话 token 的 cookie。
const CookieName = "auth-token"

const identityKey = "identity"

var unauthenticated = api.Envelope{Message: "Authentication required", Code: http.StatusUnauthorized}

// ErrUserGone 由 UserFinder 在用户行不存在时返回。
var ErrUserGone = errors.New("auth: user not found")

// Identity 是一次请求内使用的已认证身份。
type Identity struct {
	UserID   uint
	Username string
	IsRoot   bool
}

// UserFinder 按 id 读取用户行；不存在时返回的错误需满足 errors.Is(err, ErrUserGone)。
type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
}

type SessionResolver struct {
	tokens *TokenIssuer
	users  UserFinder
}

func NewSessionResolver(tokens *TokenIssuer, users UserFinder) *SessionResolver {
	return &SessionResolver{tokens: tokens, users: users}
}

// Resolve 返回 (nil, nil) 表示未认证：token 缺失、格式错误、过期或用户已不存在。
// 只有存储层故障才返回 error。
func (r *SessionResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	claims, ok := r.tokens.Verify(token)
	if !ok {
		return nil, nil
	}
	user, err := r.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrUserGone) {
			return nil, nil
		}
		return nil, err
	}
	return &Identity{UserID: user.ID, Username: user.Username, IsRoot: user.IsRoot}, nil
}

// TokenFromRequest 优先读取 cookie，其次是 Bearer 头（命令行客户端使用）。
func TokenFromRequest(r *http.Request) string {
	if ck, err := r.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && strings.EqualFold(authz[:7], "bearer ") {
		return strings.TrimSpace(authz[7:])
	}
	return ""
}

// RequireSession 解析会话并把 Identity 放进本次请求的 gin.Context。
func RequireSession(r *SessionResolver, onFailure func(reason string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c.Request)
		if token == "" {
			notify(onFailure, "missing")
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthenticated)
			return
		}
		id, err := r.Resolve(c.Request.Context(), token)
		if err != nil {
			log.Error().Err(err).
				Str("request_id", mw.GetRequestID(c)).
				Str("path", c.Request.URL.Path).
				Msg("session lookup failed")
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, api.Envelope{Message: "Internal server error", Code: http.StatusInternalServerError})
			return
		}
		if id == nil {
			notify(onFailure, "invalid")
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthenticated)
			return
		}
		c.Set(identityKey, *id)
		c.Next()
	}
}

func notify(fn func(string), reason string) {
	if fn != nil {
		fn(reason)
	}
}

// IdentityFrom 读取 RequireSession 写入的身份。
func IdentityFrom(c *gin.Context) (Identity, bool) {
	if v, ok := c.Get(identityKey); ok {
		if id, ok2 := v.(Identity); ok2 {
			return id, true
		}
	}
	return Identity{}, false
}

// SetSessionCookie 写入 HttpOnly、SameSite=Lax、24 小时的会话 cookie。
func SetSessionCookie(c *gin.Context, token string, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(SessionTTL.Seconds()), "/", "", secure, true)
}

// ClearSessionCookie 通过 Max-Age=0 清除会话 cookie。
func ClearSessionCookie(c *gin.Context, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
