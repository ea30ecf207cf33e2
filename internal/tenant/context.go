package tenant

import (
	"context"

	"go-tenantadmin/internal/domain/model"
)

// 租户上下文随 context.Context 传播：单元内可见、并发单元间天然隔离，
// 请求结束即随派生 context 消亡，worker 复用不会泄漏上一个请求的租户。

type ctxKey struct{}

// With 在 ctx 上安装当前租户
func With(ctx context.Context, t *model.Tenant) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}

// From 取出当前租户
func From(ctx context.Context) (*model.Tenant, bool) {
	t, ok := ctx.Value(ctxKey{}).(*model.Tenant)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// ID 取出当前租户 ID
func ID(ctx context.Context) (string, bool) {
	if t, ok := From(ctx); ok {
		return t.ID, true
	}
	return "", false
}

// Clear 显式移除租户（用于免租户子流程）
func Clear(ctx context.Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, (*model.Tenant)(nil))
}

// RunAs 在指定租户下执行 body。嵌套安全：body 中再次 RunAs 结束后，
// 外层调用方持有的 ctx 未被改动，先前租户自然恢复（包括 body 出错的路径）。
func RunAs(ctx context.Context, t *model.Tenant, body func(ctx context.Context) error) error {
	return body(With(ctx, t))
}
