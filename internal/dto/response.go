package dto

import "time"

// TimeLayout 所有时间字段统一输出 RFC3339（UTC）
const TimeLayout = time.RFC3339

// FormatTime 格式化为 UTC RFC3339
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// UserBrief 用户简要信息
type UserBrief struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
