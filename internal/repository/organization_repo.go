package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"shiftmate/backend/internal/model"
)

// OrganizationRepository 组织数据访问接口
type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	GetByID(ctx context.Context, id string) (*model.Organization, error)
	// GetByIDForUpdate 行级锁查询，级联删除前锁定组织
	GetByIDForUpdate(ctx context.Context, id string) (*model.Organization, error)
	// GetByName 大小写不敏感匹配
	GetByName(ctx context.Context, name string) (*model.Organization, error)
	List(ctx context.Context) ([]model.Organization, error)
	Update(ctx context.Context, org *model.Organization) error
	Delete(ctx context.Context, id string) error
}

type organizationRepo struct {
	db *gorm.DB
}

// NewOrganizationRepo 创建 OrganizationRepository 实例
func NewOrganizationRepo(db *gorm.DB) OrganizationRepository {
	return &organizationRepo{db: db}
}

func (r *organizationRepo) Create(ctx context.Context, org *model.Organization) error {
	return r.db.WithContext(ctx).Create(org).Error
}

func (r *organizationRepo) GetByID(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", id).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	err := forUpdate(r.db.WithContext(ctx)).
		Where("organization_id = ?", id).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepo) GetByName(ctx context.Context, name string) (*model.Organization, error) {
	var org model.Organization
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *organizationRepo) List(ctx context.Context) ([]model.Organization, error) {
	var orgs []model.Organization
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&orgs).Error
	return orgs, err
}

func (r *organizationRepo) Update(ctx context.Context, org *model.Organization) error {
	return r.db.WithContext(ctx).
		Model(org).
		Where("organization_id = ?", org.OrganizationID).
		Updates(map[string]interface{}{
			"name":       org.Name,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}).Error
}

func (r *organizationRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("organization_id = ?", id).
		Delete(&model.Organization{}).Error
}
