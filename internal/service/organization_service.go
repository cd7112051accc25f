package service

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shiftmate/backend/internal/dto"
	"shiftmate/backend/internal/model"
	"shiftmate/backend/internal/repository"
	"shiftmate/backend/pkg/database"
	"shiftmate/backend/pkg/sanitize"
)

// OrganizationService 组织管理（超级管理员）
type OrganizationService interface {
	Create(ctx context.Context, req *dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error)
	GetByID(ctx context.Context, id string) (*dto.OrganizationResponse, error)
	List(ctx context.Context) ([]dto.OrganizationResponse, error)
	Rename(ctx context.Context, id string, req *dto.UpdateOrganizationRequest) (*dto.OrganizationResponse, error)
	// Delete 级联删除：换班申请 → 班次 → 用户 → 组织
	Delete(ctx context.Context, id string) error
}

type organizationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewOrganizationService 创建 OrganizationService 实例
func NewOrganizationService(repo *repository.Repository, logger *zap.Logger) OrganizationService {
	return &organizationService{repo: repo, logger: logger}
}

// normalizeOrgName 清洗后校验名称
func normalizeOrgName(raw string) (string, error) {
	name := sanitize.PlainText(raw)
	if name == "" {
		return "", ErrOrgNameRequired
	}
	if utf8.RuneCountInString(name) > model.OrganizationNameMaxLen {
		return "", ErrOrgNameTooLong
	}
	return name, nil
}

// ensureNameFree 名称大小写不敏感唯一；exceptID 为重命名时的自身 ID
func (s *organizationService) ensureNameFree(ctx context.Context, name, exceptID string) error {
	existing, err := s.repo.Organization.GetByName(ctx, name)
	if err == nil {
		if existing.OrganizationID != exceptID {
			return ErrOrgNameExists
		}
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	s.logger.Error("查询组织名称失败", zap.Error(err))
	return err
}

// ────────────────────── Create ──────────────────────

func (s *organizationService) Create(ctx context.Context, req *dto.CreateOrganizationRequest) (*dto.OrganizationResponse, error) {
	name, err := normalizeOrgName(req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	org := &model.Organization{Name: name}
	if err := s.repo.Organization.Create(ctx, org); err != nil {
		// 并发创建同名组织由唯一索引兜底
		if database.IsUniqueViolation(err) {
			return nil, ErrOrgNameExists
		}
		s.logger.Error("创建组织失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("组织已创建", zap.String("organization_id", org.OrganizationID), zap.String("name", name))
	return toOrganizationResponse(org), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *organizationService) GetByID(ctx context.Context, id string) (*dto.OrganizationResponse, error) {
	org, err := s.repo.Organization.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		s.logger.Error("查询组织失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toOrganizationResponse(org), nil
}

func (s *organizationService) List(ctx context.Context) ([]dto.OrganizationResponse, error) {
	orgs, err := s.repo.Organization.List(ctx)
	if err != nil {
		s.logger.Error("列出组织失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.OrganizationResponse, 0, len(orgs))
	for i := range orgs {
		result = append(result, *toOrganizationResponse(&orgs[i]))
	}
	return result, nil
}

// ────────────────────── Rename ──────────────────────

func (s *organizationService) Rename(ctx context.Context, id string, req *dto.UpdateOrganizationRequest) (*dto.OrganizationResponse, error) {
	name, err := normalizeOrgName(req.Name)
	if err != nil {
		return nil, err
	}

	org, err := s.repo.Organization.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrgNotFound
		}
		s.logger.Error("查询组织失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if err := s.ensureNameFree(ctx, name, org.OrganizationID); err != nil {
		return nil, err
	}

	org.Name = name
	if err := s.repo.Organization.Update(ctx, org); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrOrgNameExists
		}
		s.logger.Error("重命名组织失败", zap.Error(err))
		return nil, err
	}
	return toOrganizationResponse(org), nil
}

// ────────────────────── Delete ──────────────────────
//
// 两阶段，同一事务：
//  1. 锁定组织，收集成员、班次以及引用它们的换班申请 ID
//  2. 按外键依赖顺序删除：换班申请 → 班次 → 用户 → 组织

func (s *organizationService) Delete(ctx context.Context, id string) error {
	var swapCount, shiftCount, userCount int
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Organization.GetByIDForUpdate(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrgNotFound
			}
			return err
		}

		userIDs, err := tx.User.ListIDsByOrganization(ctx, id)
		if err != nil {
			return err
		}
		shiftIDs, err := tx.Shift.ListIDsByOrganization(ctx, id)
		if err != nil {
			return err
		}
		swapIDs, err := tx.SwapRequest.ListIDsReferencing(ctx, shiftIDs, userIDs)
		if err != nil {
			return err
		}
		swapCount, shiftCount, userCount = len(swapIDs), len(shiftIDs), len(userIDs)

		if err := tx.SwapRequest.DeleteByIDs(ctx, swapIDs); err != nil {
			return err
		}
		if err := tx.Shift.DeleteByIDs(ctx, shiftIDs); err != nil {
			return err
		}
		if err := tx.User.DeleteByIDs(ctx, userIDs); err != nil {
			return err
		}
		return tx.Organization.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			return err
		}
		err = translateTxError(err)
		s.logger.Error("删除组织失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("组织已删除",
		zap.String("organization_id", id),
		zap.Int("swap_requests", swapCount),
		zap.Int("shifts", shiftCount),
		zap.Int("users", userCount),
	)
	return nil
}
