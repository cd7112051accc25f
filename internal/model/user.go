package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Role 用户角色（封闭枚举）
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole 解析角色字符串，未知值返回错误
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleEmployee, RoleManager, RoleAdmin, RoleSuperAdmin:
		return r, nil
	}
	return "", fmt.Errorf("未知角色: %q", s)
}

// CanManageShifts 经理及以上可增删改班次
func (r Role) CanManageShifts() bool {
	return r == RoleManager || r == RoleAdmin || r == RoleSuperAdmin
}

// rank 角色等级，用于授予角色时的越权判断
func (r Role) rank() int {
	switch r {
	case RoleManager:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	}
	return 0
}

// Outranks 判断 r 的等级是否不低于 other
func (r Role) Outranks(other Role) bool {
	return r.rank() >= other.rank()
}

// Scan 从数据库读取时拒绝非法角色
func (r *Role) Scan(src interface{}) error {
	var s string
	switch v := src.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return fmt.Errorf("Role.Scan: unsupported type %T", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Value 写入数据库前校验
func (r Role) Value() (driver.Value, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}

// User 用户表，对应 users
type User struct {
	UserID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	FirstName           string     `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName            string     `gorm:"type:varchar(100);not null"                     json:"last_name"`
	Email               string     `gorm:"type:varchar(255);not null"                     json:"email"` // 始终小写
	PasswordHash        string     `gorm:"type:varchar(255);not null"                     json:"-"`
	Role                Role       `gorm:"type:varchar(20);not null;default:'employee'"   json:"role"`
	OrganizationID      *string    `gorm:"type:uuid"                                      json:"organization_id,omitempty"` // 仅超级管理员可为空
	ResetTokenHash      *string    `gorm:"type:varchar(128)"                              json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// FullName 展示用姓名
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// BelongsTo 判断用户是否属于指定组织
func (u *User) BelongsTo(orgID string) bool {
	return u.OrganizationID != nil && *u.OrganizationID == orgID
}
