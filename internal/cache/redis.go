package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/tourbooking/config"
	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/Domenick1991/tourbooking/internal/draft"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client   redis.Cmdable
	draftTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, draftTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:   redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		draftTTL: draftTTL,
	}
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client redis.Cmdable, draftTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, draftTTL: draftTTL}
}

func (c *RedisCache) GetItem(ctx context.Context, itemType domain.ItemType, key string) (*domain.BookableItem, error) {
	data, err := c.client.Get(ctx, itemKey(itemType, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var item domain.BookableItem
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *RedisCache) SetItem(ctx context.Context, itemType domain.ItemType, key string, item domain.BookableItem, ttl time.Duration) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, itemKey(itemType, key), payload, ttl).Err()
}

// Drafts returns a draft store scoped to one client session.
func (c *RedisCache) Drafts(session string) *DraftStore {
	return &DraftStore{client: c.client, session: session, ttl: c.draftTTL}
}

// DraftStore keeps drafts of one session. Entries expire after ttl without writes.
type DraftStore struct {
	client  redis.Cmdable
	session string
	ttl     time.Duration
}

func (s *DraftStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, draftKey(s.session, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, draft.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *DraftStore) Save(ctx context.Context, key string, blob []byte) error {
	return s.client.Set(ctx, draftKey(s.session, key), blob, s.ttl).Err()
}

func (s *DraftStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, draftKey(s.session, key)).Err()
}

func itemKey(itemType domain.ItemType, key string) string {
	return fmt.Sprintf("cache:item:%s:%s", itemType, key)
}

func draftKey(session, key string) string {
	return fmt.Sprintf("draft:%s:%s", session, key)
}

var _ draft.Store = (*DraftStore)(nil)
