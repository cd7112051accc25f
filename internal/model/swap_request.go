package model

import (
	"database/sql/driver"
	"fmt"
)

// SwapStatus 换班申请状态（封闭枚举）
// Pending → {Accepted, Declined, Cancelled}，三个终态不可再迁移
type SwapStatus string

const (
	SwapStatusPending   SwapStatus = "pending"
	SwapStatusAccepted  SwapStatus = "accepted"
	SwapStatusDeclined  SwapStatus = "declined"
	SwapStatusCancelled SwapStatus = "cancelled"
)

// ParseSwapStatus 解析状态字符串，未知值返回错误
func ParseSwapStatus(s string) (SwapStatus, error) {
	switch st := SwapStatus(s); st {
	case SwapStatusPending, SwapStatusAccepted, SwapStatusDeclined, SwapStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("未知换班状态: %q", s)
}

// IsTerminal 是否为终态
func (s SwapStatus) IsTerminal() bool {
	return s != SwapStatusPending
}

// CanTransitionTo 仅允许 Pending 迁移到任一终态
func (s SwapStatus) CanTransitionTo(next SwapStatus) bool {
	return s == SwapStatusPending && next.IsTerminal()
}

// Scan 从数据库读取时拒绝非法状态
func (s *SwapStatus) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("SwapStatus.Scan: unsupported type %T", src)
	}
	parsed, err := ParseSwapStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value 写入数据库前校验
func (s SwapStatus) Value() (driver.Value, error) {
	if _, err := ParseSwapStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

// SwapRequest 换班申请表，对应 swap_requests
//   - 公开挂单：TargetShiftID 为空，任意合格同事可接受
//   - 定向互换：TargetShiftID 与 TargetUserID 均有值，仅目标用户可接受/拒绝
type SwapRequest struct {
	SwapRequestID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"swap_request_id"`
	ShiftID          string     `gorm:"type:uuid;not null"                             json:"shift_id"`
	RequestingUserID string     `gorm:"type:uuid;not null"                             json:"requesting_user_id"`
	TargetUserID     *string    `gorm:"type:uuid"                                      json:"target_user_id,omitempty"`
	TargetShiftID    *string    `gorm:"type:uuid"                                      json:"target_shift_id,omitempty"`
	Status           SwapStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	VersionedModel

	// 关联
	Shift          *Shift `gorm:"foreignKey:ShiftID;references:ShiftID"                json:"shift,omitempty"`
	TargetShift    *Shift `gorm:"foreignKey:TargetShiftID;references:ShiftID"          json:"target_shift,omitempty"`
	RequestingUser *User  `gorm:"foreignKey:RequestingUserID;references:UserID"        json:"requesting_user,omitempty"`
	TargetUser     *User  `gorm:"foreignKey:TargetUserID;references:UserID"            json:"target_user,omitempty"`
}

// TableName 指定表名
func (SwapRequest) TableName() string { return "swap_requests" }

// IsDirect 定向互换
func (r *SwapRequest) IsDirect() bool {
	return r.TargetShiftID != nil
}

// Flow 指标与日志使用的流程标签
func (r *SwapRequest) Flow() string {
	if r.IsDirect() {
		return "direct"
	}
	return "open"
}

// IsTargetedAt 判断是否定向给指定用户
func (r *SwapRequest) IsTargetedAt(userID string) bool {
	return r.TargetUserID != nil && *r.TargetUserID == userID
}

// References 判断申请是否以发起或目标身份引用了班次
func (r *SwapRequest) References(shiftID string) bool {
	return r.ShiftID == shiftID || (r.TargetShiftID != nil && *r.TargetShiftID == shiftID)
}

