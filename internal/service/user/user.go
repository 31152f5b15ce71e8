// Package user 实现注册、登录与令牌刷新
package user

import (
	"time"

	"pulse_chat_server/internal/dao/mysql/repository"
	"pulse_chat_server/internal/dto/request"
	"pulse_chat_server/internal/dto/respond"
	"pulse_chat_server/internal/model"
	"pulse_chat_server/pkg/errorx"
	"pulse_chat_server/pkg/util/jwt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenCache refresh token 的失效控制存储
// tokenID 写入缓存，刷新时校验存在性，换发后旧 ID 自然过期
type TokenCache interface {
	SetKeyEx(key, value string, ttl time.Duration) error
	GetKey(key string) (string, error)
}

// Service 用户服务
type Service struct {
	users      repository.UserRepository
	tokens     TokenCache
	refreshTTL time.Duration
}

// NewService 创建用户服务
func NewService(users repository.UserRepository, tokens TokenCache, refreshTTL time.Duration) *Service {
	return &Service{users: users, tokens: tokens, refreshTTL: refreshTTL}
}

func refreshKey(tokenID string) string {
	return "auth:refresh:" + tokenID
}

// Register 注册新用户
func (s *Service) Register(req *request.RegisterRequest) (*respond.LoginRespond, error) {
	if _, err := s.users.FindByUsername(req.Username); err == nil {
		return nil, errorx.New(errorx.CodeInvalidParam, "用户名已被占用")
	} else if !errorx.IsNotFound(err) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "密码加密失败")
	}

	u := &model.UserInfo{
		Uuid:     uuid.NewString(),
		Username: req.Username,
		Password: string(hashed),
		Avatar:   req.Avatar,
	}
	if err := s.users.Create(u); err != nil {
		return nil, err
	}
	return s.issueTokens(u)
}

// Login 密码登录
func (s *Service) Login(req *request.LoginRequest) (*respond.LoginRespond, error) {
	u, err := s.users.FindByUsername(req.Username)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "用户不存在")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, errorx.New(errorx.CodeInvalidPassword, "密码错误")
	}
	return s.issueTokens(u)
}

// Refresh 用 refresh token 换发新令牌对
func (s *Service) Refresh(req *request.RefreshTokenRequest) (*respond.TokenRespond, error) {
	claims, err := jwt.ParseToken(req.RefreshToken)
	if err != nil || claims.Subject != "refresh_token" || claims.TokenID == "" {
		return nil, errorx.New(errorx.CodeUnauthorized, "refresh token 无效")
	}

	if s.tokens != nil {
		stored, err := s.tokens.GetKey(refreshKey(claims.TokenID))
		if err != nil {
			return nil, err
		}
		if stored != claims.UserID {
			return nil, errorx.New(errorx.CodeUnauthorized, "refresh token 已失效")
		}
	}

	access, err := jwt.GenerateAccessToken(claims.UserID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "签发 access token 失败")
	}
	refresh, tokenID, err := jwt.GenerateRefreshToken(claims.UserID)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "签发 refresh token 失败")
	}
	if s.tokens != nil {
		if err := s.tokens.SetKeyEx(refreshKey(tokenID), claims.UserID, s.refreshTTL); err != nil {
			return nil, err
		}
	}
	return &respond.TokenRespond{AccessToken: access, RefreshToken: refresh}, nil
}

// GetByUuid 查询用户信息
func (s *Service) GetByUuid(userUuid string) (*model.UserInfo, error) {
	return s.users.FindByUuid(userUuid)
}

func (s *Service) issueTokens(u *model.UserInfo) (*respond.LoginRespond, error) {
	access, err := jwt.GenerateAccessToken(u.Uuid)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "签发 access token 失败")
	}
	refresh, tokenID, err := jwt.GenerateRefreshToken(u.Uuid)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "签发 refresh token 失败")
	}
	if s.tokens != nil {
		if err := s.tokens.SetKeyEx(refreshKey(tokenID), u.Uuid, s.refreshTTL); err != nil {
			return nil, err
		}
	}
	return &respond.LoginRespond{
		Uuid:         u.Uuid,
		Username:     u.Username,
		Avatar:       u.Avatar,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
