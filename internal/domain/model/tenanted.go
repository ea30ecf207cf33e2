package model

// Tenanted 嵌入后模型即带 tenant_id 列并满足 scope.TenantOwned。
// 跨租户引用（父角色/父菜单指向其它租户）在服务层校验拒绝。

type Tenanted struct {
	TenantID string `gorm:"column:tenant_id;type:uuid;index" json:"tenant_id"`
}

func (t *Tenanted) GetTenantID() string   { return t.TenantID }
func (t *Tenanted) SetTenantID(id string) { t.TenantID = id }
