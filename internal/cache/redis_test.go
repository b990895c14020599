package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/draft"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "cache:item:hotel:h-1", itemKey(domain.ItemTypeHotel, "h-1"))
	assert.Equal(t, "draft:sess-9:booking-draft-h-1", draftKey("sess-9", draft.Key("h-1")))
}

func TestNewRedisCache(t *testing.T) {
	c := NewRedisCache(config.RedisConfig{Addr: "localhost:6379"}, time.Hour)
	assert.NotNil(t, c)

	store := c.Drafts("sess-1")
	assert.Equal(t, "sess-1", store.session)
	assert.Equal(t, time.Hour, store.ttl)
}

func unreachable() *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewRedisCacheWithClient(client, time.Hour)
}

func TestRedisCache_ErrorsSurface(t *testing.T) {
	c := unreachable()
	ctx := context.Background()

	item, err := c.GetItem(ctx, domain.ItemTypeHotel, "h-1")
	assert.Error(t, err)
	assert.Nil(t, item)

	_, err = c.Drafts("s").Load(ctx, draft.Key("h-1"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, draft.ErrNotFound)

	assert.Error(t, c.Drafts("s").Save(ctx, draft.Key("h-1"), []byte("{}")))
}
