package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/models"
)

const (
	productKeyPrefix = "product:"
	listGenKey       = "products:gen"

	productTTL = 5 * time.Minute
	listTTL    = time.Minute
)

// ProductCache is a cache-aside layer over the read-mostly product store.
// A nil *ProductCache is a valid no-op cache, so callers never branch on
// whether redis is configured.
type ProductCache struct {
	client *redis.Client
}

func New(client *redis.Client) *ProductCache {
	return &ProductCache{client: client}
}

func (pc *ProductCache) enabled() bool {
	return pc != nil && pc.client != nil
}

func (pc *ProductCache) GetProduct(ctx context.Context, id uint) (*models.Product, bool) {
	if !pc.enabled() {
		return nil, false
	}
	data, err := pc.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		return nil, false
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, false
	}
	return &p, true
}

func (pc *ProductCache) SetProduct(ctx context.Context, p *models.Product) {
	if !pc.enabled() {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	pc.client.Set(ctx, productKey(p.ID), data, productTTL)
}

func (pc *ProductCache) InvalidateProduct(ctx context.Context, id uint) {
	if !pc.enabled() {
		return
	}
	pc.client.Del(ctx, productKey(id))
	pc.client.Incr(ctx, listGenKey)
}

// Page results are keyed under a generation counter; invalidation bumps the
// counter and stale pages age out via TTL instead of being scanned for.
func (pc *ProductCache) GetList(ctx context.Context, page, size int) ([]byte, bool) {
	if !pc.enabled() {
		return nil, false
	}
	key, err := pc.listKey(ctx, page, size)
	if err != nil {
		return nil, false
	}
	data, err := pc.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

func (pc *ProductCache) SetList(ctx context.Context, page, size int, payload []byte) {
	if !pc.enabled() {
		return
	}
	key, err := pc.listKey(ctx, page, size)
	if err != nil {
		return
	}
	pc.client.Set(ctx, key, payload, listTTL)
}

func (pc *ProductCache) listKey(ctx context.Context, page, size int) (string, error) {
	gen, err := pc.client.Get(ctx, listGenKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("products:v%d:page:%d:size:%d", gen, page, size), nil
}

func productKey(id uint) string {
	return fmt.Sprintf("%s%d", productKeyPrefix, id)
}
