package service

import (
	"context"
	"errors"
	"fmt"

	"roomchat/internal/auth"
	"roomchat/internal/models"

	"gorm.io/gorm"
)

// errUserGone 同时匹配 ErrUserNotFound 与 auth.ErrUserGone。
var errUserGone = fmt.Errorf("%w: %w", ErrUserNotFound, auth.ErrUserGone)

// UserService 封装用户相关的业务逻辑。
type UserService struct {
	db     *gorm.DB
	hasher *auth.PasswordHasher
	tokens *auth.TokenIssuer
}

func NewUserService(db *gorm.DB, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer) *UserService {
	return &UserService{db: db, hasher: hasher, tokens: tokens}
}

// Register 注册新用户。库中第一个用户自动成为 root。
// 用户名的预检查只是提前返回，唯一索引才是最终裁决。
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	db := s.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	var total int64
	if err := db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, err
	}
	user := models.User{Username: username, PasswordHash: hash}
	if total == 0 {
		root := true
		user.IsRoot = true
		user.RootSlot = &root
	}
	if err := s.insert(db, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// insert 写入用户，并把用户名唯一索引冲突翻译成 ErrUsernameTaken。
func (s *UserService) insert(db *gorm.DB, user *models.User) error {
	err := db.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) && user.IsRoot {
		// 并发注册时可能输掉 root 名额，以普通用户身份重试一次。
		*user = models.User{Username: user.Username, PasswordHash: user.PasswordHash}
		err = db.Create(user).Error
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrUsernameTaken
	}
	return err
}

// Login 校验用户名密码并签发会话 token。
// 用户不存在与密码错误返回同一个错误，且耗时相当。
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	token, _, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Username: user.Username, IsRoot: user.IsRoot})
	if err != nil {
		return nil, "", err
	}
	return &user, token, nil
}

// FindByID 实现 auth.UserFinder。
func (s *UserService) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserGone
		}
		return nil, err
	}
	return &user, nil
}
