package model

import "time"

// BaseModel 审计时间字段，由数据库默认值填充
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// VersionedModel 乐观锁版本号
// 更新以旧值作 WHERE 条件，命中后加一；班次与换班申请都嵌入
type VersionedModel struct {
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`
}

// NextVersion 本次更新成功后应写入的版本号
func (v *VersionedModel) NextVersion() int {
	return v.Version + 1
}

// Advance 更新命中后同步内存中的版本号
func (v *VersionedModel) Advance() {
	v.Version++
}
