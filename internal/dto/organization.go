package dto

// ── 组织模块 DTO ──

// CreateOrganizationRequest 创建组织请求
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateOrganizationRequest 重命名组织请求
type UpdateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// OrganizationResponse 组织信息响应
type OrganizationResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}
