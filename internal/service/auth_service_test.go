package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"shiftmate/backend/config"
	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/model"
	"shiftmate/backend/pkg/jwt"
)

// ── 测试辅助 ──

type mockBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Duration
}

func (b *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[jti] = ttl
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "https://shifts.example.com"},
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret-key-for-unit-tests",
			AccessTokenTTL: 15 * time.Minute,
			ResetTokenTTL:  30 * time.Minute,
		},
		Schedule: testScheduleConfig(),
	}
}

func setupTestAuthService() (*fixture, AuthService, *mockBlacklist, *chanNotifier, *jwt.Manager) {
	f := newFixture()
	cfg := testConfig()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	blacklist := &mockBlacklist{entries: make(map[string]time.Duration)}
	notifier := newChanNotifier()
	svc := NewAuthService(cfg, f.repo, jwtMgr, blacklist, notifier, zap.NewNop())
	return f, svc, blacklist, notifier, jwtMgr
}

// addLoginUser 创建密码为 password123 的用户
func (f *fixture) addLoginUser(email string, role model.Role) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &model.User{
		FirstName:      "Zhang",
		LastName:       "San",
		Email:          email,
		PasswordHash:   string(hash),
		Role:           role,
		OrganizationID: &f.orgID,
	}
	_ = f.repo.User.Create(context.Background(), user)
	return user
}

// ── Login 测试 ──

func TestLogin_Success(t *testing.T) {
	f, svc, _, _, jwtMgr := setupTestAuthService()
	user := f.addLoginUser("zhangsan@example.com", model.RoleManager)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "ZhangSan@Example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 应成功: %v", err)
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", resp.ExpiresIn)
	}
	if resp.User.ID != user.UserID {
		t.Errorf("期望 User.ID=%s，实际=%s", user.UserID, resp.User.ID)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("AccessToken 应可解析: %v", err)
	}
	if claims.UserID != user.UserID || claims.OrganizationID != f.orgID || claims.Role != "manager" {
		t.Errorf("Claims 不符: %+v", claims)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	f, svc, _, _, _ := setupTestAuthService()
	f.addLoginUser("zhangsan@example.com", model.RoleEmployee)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "zhangsan@example.com", Password: "wrong-password"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	_, svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("不存在的邮箱应与密码错误返回相同错误，实际: %v", err)
	}
}

// ── Logout 测试 ──

func TestLogout_BlacklistsUntilExpiry(t *testing.T) {
	_, svc, blacklist, _, _ := setupTestAuthService()

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}
	ttl, ok := blacklist.entries["jti-1"]
	if !ok {
		t.Fatal("Token 应加入黑名单")
	}
	if ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Errorf("黑名单 TTL 应接近剩余有效期，实际=%v", ttl)
	}
}

func TestLogout_WithoutRedis(t *testing.T) {
	f := newFixture()
	cfg := testConfig()
	svc := NewAuthService(cfg, f.repo, jwt.NewManager(&cfg.Auth), nil, nil, zap.NewNop())

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Errorf("未配置黑名单时 Logout 不应失败: %v", err)
	}
}

// ── 密码重置测试 ──

func TestPasswordReset_FullFlow(t *testing.T) {
	f, svc, _, notifier, _ := setupTestAuthService()
	ctx := context.Background()
	user := f.addLoginUser("zhangsan@example.com", model.RoleEmployee)

	if err := svc.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "zhangsan@example.com"}); err != nil {
		t.Fatalf("ForgotPassword 应成功: %v", err)
	}

	var msg Notification
	select {
	case msg = <-notifier.ch:
	case <-time.After(time.Second):
		t.Fatal("未收到重置通知")
	}
	if msg.Type != NotificationPasswordReset || msg.RecipientID != user.UserID {
		t.Fatalf("通知不符: %+v", msg)
	}
	token := msg.Data["token"]
	if msg.Data["reset_url"] != "https://shifts.example.com/reset-password?token="+token {
		t.Errorf("reset_url 不符: %s", msg.Data["reset_url"])
	}

	stored, _ := f.repo.User.GetByID(ctx, user.UserID)
	if stored.ResetTokenHash == nil || *stored.ResetTokenHash == token {
		t.Fatal("数据库应只保存令牌哈希")
	}

	if err := svc.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "brand-new-pass"}); err != nil {
		t.Fatalf("ResetPassword 应成功: %v", err)
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Email: "zhangsan@example.com", Password: "brand-new-pass"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}

	// 令牌一次性
	err := svc.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: token, NewPassword: "another-pass"})
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("期望 ErrResetTokenInvalid，实际: %v", err)
	}
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	_, svc, _, notifier, _ := setupTestAuthService()

	if err := svc.ForgotPassword(context.Background(), &dto.ForgotPasswordRequest{Email: "nobody@example.com"}); err != nil {
		t.Errorf("未知邮箱不应返回错误: %v", err)
	}
	select {
	case msg := <-notifier.ch:
		t.Errorf("不应投递通知: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestResetPassword_Expired(t *testing.T) {
	f, svc, _, _, _ := setupTestAuthService()
	ctx := context.Background()
	user := f.addLoginUser("zhangsan@example.com", model.RoleEmployee)

	hash := hashResetToken("expired-token")
	past := time.Now().Add(-time.Minute)
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &past
	_ = f.repo.User.Update(ctx, user)

	err := svc.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: "expired-token", NewPassword: "brand-new-pass"})
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Errorf("期望 ErrResetTokenInvalid，实际: %v", err)
	}
}

func TestResetPassword_WeakPassword(t *testing.T) {
	f, svc, _, _, _ := setupTestAuthService()
	ctx := context.Background()
	user := f.addLoginUser("zhangsan@example.com", model.RoleEmployee)

	hash := hashResetToken("good-token")
	future := time.Now().Add(time.Hour)
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &future
	_ = f.repo.User.Update(ctx, user)

	err := svc.ResetPassword(ctx, &dto.ResetPasswordRequest{Token: "good-token", NewPassword: "short"})
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("期望 ErrPasswordTooShort，实际: %v", err)
	}
}
