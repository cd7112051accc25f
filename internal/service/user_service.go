package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/repository"
	"shiftmate/backend/pkg/database"
	"shiftmate/backend/pkg/sanitize"
)

// MinPasswordLength 密码最短长度
const MinPasswordLength = 8

// Caller 当前请求的身份（来自 JWT，服务层只消费不校验）
type Caller struct {
	UserID         string
	OrganizationID string // 超级管理员为空
	Role           model.Role
}

// IsSuperAdmin 超级管理员可跨组织操作
func (c Caller) IsSuperAdmin() bool {
	return c.Role == model.RoleSuperAdmin
}

// UserService 组织成员管理
type UserService interface {
	Create(ctx context.Context, caller Caller, req *dto.CreateUserRequest) (*dto.UserResponse, error)
	GetByID(ctx context.Context, caller Caller, id string) (*dto.UserResponse, error)
	ListByOrganization(ctx context.Context, orgID string) ([]dto.UserResponse, error)
	UpdateRole(ctx context.Context, caller Caller, id string, req *dto.UpdateRoleRequest) (*dto.UserResponse, error)
	// Delete 级联：删除引用该用户或其班次的申请 → 班次改为未分配 → 删除用户
	Delete(ctx context.Context, caller Caller, id string) error
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// hashPassword 长度校验后生成 bcrypt 哈希
func hashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// normalizeEmail 邮箱统一小写存储
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, caller Caller, req *dto.CreateUserRequest) (*dto.UserResponse, error) {
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, ErrRoleNotGrantable
	}
	if !caller.Role.Outranks(role) {
		return nil, ErrRoleNotGrantable
	}

	// 非超级管理员只能在自己的组织内建人
	orgID := caller.OrganizationID
	if caller.IsSuperAdmin() {
		orgID = req.OrganizationID
	}
	var orgRef *string
	if orgID != "" {
		if _, err := s.repo.Organization.GetByID(ctx, orgID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrOrgNotFound
			}
			s.logger.Error("查询组织失败", zap.Error(err))
			return nil, err
		}
		orgRef = &orgID
	} else if role != model.RoleSuperAdmin {
		return nil, ErrUserOrgRequired
	}

	firstName := sanitize.PlainText(req.FirstName)
	lastName := sanitize.PlainText(req.LastName)
	if firstName == "" || lastName == "" {
		return nil, ErrNameRequired
	}

	email := normalizeEmail(req.Email)
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询邮箱失败", zap.Error(err))
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooShort) {
			return nil, err
		}
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		PasswordHash:   hash,
		Role:           role,
		OrganizationID: orgRef,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrEmailExists
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户已创建",
		zap.String("user_id", user.UserID),
		zap.String("role", string(role)),
		zap.String("created_by", caller.UserID),
	)
	return toUserResponse(user), nil
}

// ────────────────────── GetByID / List ──────────────────────

// loadMember 查询用户；非超级管理员跨组织访问按不存在处理
func (s *userService) loadMember(ctx context.Context, caller Caller, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if !caller.IsSuperAdmin() && !user.BelongsTo(caller.OrganizationID) {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) GetByID(ctx context.Context, caller Caller, id string) (*dto.UserResponse, error) {
	user, err := s.loadMember(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

func (s *userService) ListByOrganization(ctx context.Context, orgID string) ([]dto.UserResponse, error) {
	users, err := s.repo.User.ListByOrganization(ctx, orgID)
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, *toUserResponse(&users[i]))
	}
	return result, nil
}

// ────────────────────── UpdateRole ──────────────────────
//
// 不能修改自己；调用者等级须不低于目标用户的现有角色与新角色

func (s *userService) UpdateRole(ctx context.Context, caller Caller, id string, req *dto.UpdateRoleRequest) (*dto.UserResponse, error) {
	if caller.UserID == id {
		return nil, ErrUserSelfRoleChange
	}
	role, err := model.ParseRole(req.Role)
	if err != nil || !caller.Role.Outranks(role) {
		return nil, ErrRoleNotGrantable
	}

	user, err := s.loadMember(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !caller.Role.Outranks(user.Role) {
		return nil, ErrRoleNotGrantable
	}
	if user.OrganizationID == nil && role != model.RoleSuperAdmin {
		return nil, ErrUserOrgRequired
	}

	user.Role = role
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新角色失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户角色已变更",
		zap.String("user_id", id),
		zap.String("role", string(role)),
		zap.String("changed_by", caller.UserID),
	)
	return toUserResponse(user), nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, caller Caller, id string) error {
	if caller.UserID == id {
		return ErrUserSelfDelete
	}
	user, err := s.loadMember(ctx, caller, id)
	if err != nil {
		return err
	}
	if !caller.Role.Outranks(user.Role) {
		return ErrRoleNotGrantable
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.User.GetByIDForUpdate(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		shiftIDs, err := tx.Shift.ListIDsByUser(ctx, id)
		if err != nil {
			return err
		}
		swapIDs, err := tx.SwapRequest.ListIDsReferencing(ctx, shiftIDs, []string{id})
		if err != nil {
			return err
		}
		if err := tx.SwapRequest.DeleteByIDs(ctx, swapIDs); err != nil {
			return err
		}
		if err := tx.Shift.UnassignByUser(ctx, id); err != nil {
			return err
		}
		return tx.User.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		err = translateTxError(err)
		s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("用户已删除", zap.String("user_id", id), zap.String("deleted_by", caller.UserID))
	return nil
}
