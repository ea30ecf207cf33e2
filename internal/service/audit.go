package service

import (
	"context"
	"encoding/json"
	"time"

	"go-tenantadmin/internal/mq/kafka"
	"go-tenantadmin/internal/tenant"
)

// AuditEvent 租户/角色/菜单变更审计记录，key 为 tenant_id（同租户落同分区保序）
type AuditEvent struct {
	At       time.Time `json:"at"`
	TenantID string    `json:"tenant_id"`
	ActorID  int64     `json:"actor_id"`
	Action   string    `json:"action"` // role.add / menu.edit / tenant.provision ...
	Entity   string    `json:"entity"`
	EntityID string    `json:"entity_id"`
	Detail   string    `json:"detail,omitempty"`
}

// AuditRecorder 封装异步发送；sender 为 nil 时静默跳过（本地开发可不接 Kafka）
type AuditRecorder struct {
	Sender *kafka.AuditSender
}

func NewAuditRecorder(s *kafka.AuditSender) *AuditRecorder { return &AuditRecorder{Sender: s} }

func (r *AuditRecorder) Record(ctx context.Context, action, entity, entityID, detail string) {
	if r == nil || r.Sender == nil {
		return
	}
	ev := AuditEvent{At: time.Now(), Action: action, Entity: entity, EntityID: entityID, Detail: detail}
	if tid, ok := tenant.ID(ctx); ok {
		ev.TenantID = tid
	}
	if v := ctx.Value("user_id"); v != nil {
		if id, ok := v.(int64); ok {
			ev.ActorID = id
		}
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	r.Sender.Enqueue(kafka.AsyncMessage{Ctx: ctx, Key: []byte(ev.TenantID), Value: b})
}
