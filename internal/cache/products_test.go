package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/internal/models"
)

// Handlers hold a nil *ProductCache when redis is not configured; every
// operation must behave as a miss or no-op.
func TestNilCacheIsNoOp(t *testing.T) {
	var pc *ProductCache
	ctx := context.Background()

	p, ok := pc.GetProduct(ctx, 1)
	require.Nil(t, p)
	require.False(t, ok)

	data, ok := pc.GetList(ctx, 1, 10)
	require.Nil(t, data)
	require.False(t, ok)

	pc.SetProduct(ctx, &models.Product{ID: 1, Name: "lamp"})
	pc.SetList(ctx, 1, 10, []byte(`{}`))
	pc.InvalidateProduct(ctx, 1)
}

func TestNewWithNilClientIsNoOp(t *testing.T) {
	pc := New(nil)
	_, ok := pc.GetProduct(context.Background(), 1)
	require.False(t, ok)
}
