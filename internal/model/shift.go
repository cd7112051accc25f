package model

import "time"

// Shift 班次表，对应 shifts
// UserID 为空表示未分配；IsUpForSwap 仅由换班状态机写入
type Shift struct {
	ShiftID        string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"shift_id"`
	OrganizationID string    `gorm:"type:uuid;not null"                             json:"organization_id"`
	UserID         *string   `gorm:"type:uuid"                                      json:"user_id,omitempty"`
	StartTime      time.Time `gorm:"not null"                                       json:"start_time"`
	EndTime        time.Time `gorm:"not null"                                       json:"end_time"`
	IsUpForSwap    bool      `gorm:"not null;default:false"                         json:"is_up_for_swap"`
	VersionedModel

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Shift) TableName() string { return "shifts" }

// IsOwnedBy 判断班次当前是否归属指定用户
func (s *Shift) IsOwnedBy(userID string) bool {
	return s.UserID != nil && *s.UserID == userID
}

// IsUnassigned 未分配班次
func (s *Shift) IsUnassigned() bool {
	return s.UserID == nil
}

// IsClaimable 可认领：未分配或已挂到换班市场
func (s *Shift) IsClaimable() bool {
	return s.IsUnassigned() || s.IsUpForSwap
}

// Interval 班次的半开时间区间 [StartTime, EndTime)
func (s *Shift) Interval() Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}

// Interval 半开时间区间 [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid 结束时间必须晚于开始时间
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps 半开区间重叠：a.start < b.end && a.end > b.start，首尾相接不算重叠
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && i.End.After(other.Start)
}

// Duration 区间时长
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
