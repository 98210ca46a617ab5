package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost 是 bcrypt 的固定工作因子（2^12 轮）。
const DefaultCost = 12

// MaxPasswordBytes 是 bcrypt 能处理的最大输入长度。
const MaxPasswordBytes = 72

// PasswordHasher 对口令做加盐单向哈希。
type PasswordHasher struct {
	Cost int
}

func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &PasswordHasher{Cost: cost}
}

func (h *PasswordHasher) Hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.Cost)
	return string(b), err
}

// Verify 只返回是否匹配，格式错误的 digest 与口令不匹配不做区分。
func (h *PasswordHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// dummyHash 是一个合法的 cost=12 bcrypt 值，用于未知用户名时消耗同等的比较时间。
const dummyHash = "$2a$12$C6UzMDM.H6dfI/f/IKxGhu7sn1Ipm0x8dPqVyQsc8AmUtjn1aOYJW"

// VerifyDummy 在用户名不存在时调用，让登录耗时与口令错误时一致。
func (h *PasswordHasher) VerifyDummy(pw string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(pw))
}
