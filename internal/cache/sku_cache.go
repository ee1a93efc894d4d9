package cache

import (
	"strings"
	"time"
)

const defaultSKUTTL = 30 * time.Minute

// SKUCache maps a tenant's subscribed SKU ids to part numbers so repeated
// syncs skip the subscribedSkus call.
type SKUCache interface {
	Get(tenantID string) (map[string]string, bool)
	Set(tenantID string, skus map[string]string)
	Purge() int
}

type skuCache struct {
	items Cache[string, map[string]string]
	ttl   time.Duration
}

func NewSKUCache() SKUCache {
	return &skuCache{items: NewTTLCache[string, map[string]string](), ttl: defaultSKUTTL}
}

func (c *skuCache) Get(tenantID string) (map[string]string, bool) {
	return c.items.Get(cacheKey(tenantID))
}

func (c *skuCache) Set(tenantID string, skus map[string]string) {
	if len(skus) == 0 {
		return
	}
	c.items.Set(cacheKey(tenantID), skus, c.ttl)
}

func (c *skuCache) Purge() int {
	return c.items.Purge()
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
