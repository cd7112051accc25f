package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"shiftmate/backend/internal/model"
)

// UserRepository 用户数据访问接口
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByIDForUpdate 分配班次前锁定用户行，使重叠检查与写入按用户串行
	GetByIDForUpdate(ctx context.Context, id string) (*model.User, error)
	// GetByEmail 大小写不敏感匹配
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByResetTokenHash(ctx context.Context, hash string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	ListByOrganization(ctx context.Context, orgID string) ([]model.User, error)
	ListIDsByOrganization(ctx context.Context, orgID string) ([]string, error)
	Delete(ctx context.Context, id string) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := forUpdate(r.db.WithContext(ctx)).
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByResetTokenHash(ctx context.Context, hash string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("reset_token_hash = ?", hash).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepo) ListByOrganization(ctx context.Context, orgID string) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("last_name ASC, first_name ASC").
		Find(&users).Error
	return users, err
}

func (r *userRepo) ListIDsByOrganization(ctx context.Context, orgID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("organization_id = ?", orgID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *userRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", id).
		Delete(&model.User{}).Error
}

func (r *userRepo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id IN ?", ids).
		Delete(&model.User{}).Error
}
