package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL 是会话 token 的固定有效期。exp 以整秒记录，签发时刻的
// 亚秒部分被舍去，实际有效期最多比 SessionTTL 短不到一秒。
const SessionTTL = 24 * time.Hour

var ErrMissingSecret = errors.New("auth: signing secret is empty")

// Claims 是签发时刻的权限快照，有效期内不会随用户行变化。
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	IsRoot   bool   `json:"root"`
	jwt.RegisteredClaims
}

// TokenIssuer 使用进程级对称密钥签发和校验 HS256 token。
type TokenIssuer struct {
	secret []byte
	now    func() time.Time
}

// NewTokenIssuer 在密钥为空时返回 ErrMissingSecret，调用方应拒绝启动。
func NewTokenIssuer(secret string, now func() time.Time) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), now: now}, nil
}

func (t *TokenIssuer) Issue(id Identity) (string, Claims, error) {
	now := t.now()
	claims := Claims{
		UserID:   id.UserID,
		Username: id.Username,
		IsRoot:   id.IsRoot,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", Claims{}, err
	}
	return signed, claims, nil
}

// Verify 对结构、算法、签名或过期的任何问题都只返回 false。
func (t *TokenIssuer) Verify(tokenStr string) (*Claims, bool) {
	if tokenStr == "" {
		return nil, false
	}
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 {
		return nil, false
	}
	return claims, true
}
