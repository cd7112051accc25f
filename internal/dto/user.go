package dto

// ── 用户模块 DTO ──

// CreateUserRequest 创建组织成员请求
// OrganizationID 仅超级管理员可指定，其余角色固定为自身所属组织
type CreateUserRequest struct {
	FirstName      string `json:"first_name"      binding:"required,max=100"`
	LastName       string `json:"last_name"       binding:"required,max=100"`
	Email          string `json:"email"           binding:"required,email,max=255"`
	Password       string `json:"password"        binding:"required,min=8,max=72"`
	Role           string `json:"role"            binding:"required,oneof=employee manager admin super_admin"`
	OrganizationID string `json:"organization_id" binding:"omitempty,uuid"`
}

// UpdateRoleRequest 修改角色请求
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=employee manager admin super_admin"`
}

// UserResponse 用户信息响应（脱敏）
type UserResponse struct {
	ID             string  `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	Role           string  `json:"role"`
	OrganizationID *string `json:"organization_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}
