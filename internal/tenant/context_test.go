package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"go-tenantadmin/internal/domain/model"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := From(ctx)
	require.False(t, ok)

	ta := &model.Tenant{ID: "t-a", Name: "甲租户"}
	ctx = With(ctx, ta)

	got, ok := From(ctx)
	require.True(t, ok)
	require.Equal(t, "t-a", got.ID)

	id, ok := ID(ctx)
	require.True(t, ok)
	require.Equal(t, "t-a", id)
}

func TestContextClear(t *testing.T) {
	ctx := With(context.Background(), &model.Tenant{ID: "t-a"})
	ctx = Clear(ctx)
	_, ok := From(ctx)
	require.False(t, ok)
	_, ok = ID(ctx)
	require.False(t, ok)
}

func TestRunAsRestoresOuterTenant(t *testing.T) {
	outer := With(context.Background(), &model.Tenant{ID: "t-outer"})

	err := RunAs(outer, &model.Tenant{ID: "t-inner"}, func(ctx context.Context) error {
		id, ok := ID(ctx)
		require.True(t, ok)
		require.Equal(t, "t-inner", id)
		// 嵌套一层
		return RunAs(ctx, &model.Tenant{ID: "t-deep"}, func(ctx context.Context) error {
			id, _ := ID(ctx)
			require.Equal(t, "t-deep", id)
			return nil
		})
	})
	require.NoError(t, err)

	// 外层 ctx 未被内层污染
	id, ok := ID(outer)
	require.True(t, ok)
	require.Equal(t, "t-outer", id)
}

func TestRunAsErrorPath(t *testing.T) {
	outer := With(context.Background(), &model.Tenant{ID: "t-outer"})
	wantErr := errors.New("boom")

	err := RunAs(outer, &model.Tenant{ID: "t-inner"}, func(ctx context.Context) error {
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)

	id, ok := ID(outer)
	require.True(t, ok)
	require.Equal(t, "t-outer", id)
}

func TestConcurrentContextsIsolated(t *testing.T) {
	base := context.Background()
	done := make(chan struct{})
	for _, tid := range []string{"t-1", "t-2", "t-3"} {
		go func(tid string) {
			defer func() { done <- struct{}{} }()
			ctx := With(base, &model.Tenant{ID: tid})
			for i := 0; i < 100; i++ {
				got, ok := ID(ctx)
				require.True(t, ok)
				require.Equal(t, tid, got)
			}
		}(tid)
	}
	for i := 0; i < 3; i++ {
		<-done
	}
}
