package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shiftmate/backend/config"
	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/repository"
	"shiftmate/backend/pkg/jwt"
)

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	// Logout 将 Token ID 加入黑名单直至其自然过期
	Logout(ctx context.Context, tokenID string, expiresAt time.Time) error
	// ForgotPassword 邮箱不存在时同样返回成功，不暴露账号存在性
	ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error
}

// TokenBlacklist Token 黑名单（pkg/redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist
	notifier  Notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService 创建 AuthService 实例；blacklist 可为 nil（未启用 Redis）
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	notifier Notifier,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Access Token
	var orgID string
	if user.OrganizationID != nil {
		orgID = *user.OrganizationID
	}
	accessToken, err := s.jwtMgr.GenerateAccessToken(user.UserID, orgID, string(user.Role))
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		ExpiresIn:   int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:        *toUserResponse(user),
	}, nil
}

func (s *authService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.blacklist == nil {
		s.logger.Warn("未启用 Redis，Token 无法加入黑名单", zap.String("jti", tokenID))
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, tokenID, expiresAt.Sub(s.now())); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── 密码重置 ──────────────────────
//
// 明文令牌只出现在通知负载中，数据库仅保存 SHA-256 哈希与过期时间

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func (s *authService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	user, err := s.repo.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return err
	}

	token, err := newResetToken()
	if err != nil {
		s.logger.Error("生成重置令牌失败", zap.Error(err))
		return err
	}
	hash := hashResetToken(token)
	expiresAt := s.now().Add(s.cfg.Auth.ResetTokenTTL).UTC()
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &expiresAt
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("保存重置令牌失败", zap.Error(err))
		return err
	}

	dispatchNotification(ctx, s.notifier, s.logger, Notification{
		Type:           NotificationPasswordReset,
		RecipientID:    user.UserID,
		RecipientEmail: user.Email,
		Data: map[string]string{
			"token":      token,
			"expires_at": dto.FormatTime(expiresAt),
			"reset_url":  s.cfg.Server.BaseURL + "/reset-password?token=" + token,
		},
	})
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	user, err := s.repo.User.GetByResetTokenHash(ctx, hashResetToken(req.Token))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrResetTokenInvalid
		}
		s.logger.Error("查询重置令牌失败", zap.Error(err))
		return err
	}
	if user.ResetTokenExpiresAt == nil || !s.now().Before(*user.ResetTokenExpiresAt) {
		return ErrResetTokenInvalid
	}

	hash, err := hashPassword(req.NewPassword)
	if err != nil {
		if errors.Is(err, ErrPasswordTooShort) {
			return err
		}
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}

	user.PasswordHash = hash
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("重置密码失败", zap.Error(err))
		return err
	}

	s.logger.Info("密码已重置", zap.String("user_id", user.UserID))
	return nil
}
