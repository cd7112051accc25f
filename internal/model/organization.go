package model

// OrganizationNameMaxLen 组织名称最大长度（按字符计）
const OrganizationNameMaxLen = 100

// Organization 组织表，对应 organizations
type Organization struct {
	OrganizationID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"organization_id"`
	Name           string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Organization) TableName() string { return "organizations" }
