package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/sirupsen/logrus"
)

type ItemSource interface {
	FindRecord(ctx context.Context, itemType domain.ItemType, idOrSlug string) (Record, error)
}

type ItemCache interface {
	GetItem(ctx context.Context, itemType domain.ItemType, key string) (*domain.BookableItem, error)
	SetItem(ctx context.Context, itemType domain.ItemType, key string, item domain.BookableItem, ttl time.Duration) error
}

type ItemLoader interface {
	Load(ctx context.Context, itemType domain.ItemType, idOrSlug string) (*domain.BookableItem, error)
}

type Loader struct {
	source   ItemSource
	cache    ItemCache
	cacheTTL time.Duration
	currency string
	log      logrus.FieldLogger
}

type LoaderOption func(*Loader)

// WithCurrency sets the currency textual prices are read in. Defaults to IDR.
func WithCurrency(currency string) LoaderOption {
	return func(l *Loader) { l.currency = currency }
}

func NewLoader(source ItemSource, cache ItemCache, cacheTTL time.Duration, log logrus.FieldLogger, opts ...LoaderOption) *Loader {
	l := &Loader{source: source, cache: cache, cacheTTL: cacheTTL, currency: "IDR", log: log}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load resolves an item by id or slug. A missing record yields domain.ErrItemNotFound.
func (l *Loader) Load(ctx context.Context, itemType domain.ItemType, idOrSlug string) (*domain.BookableItem, error) {
	if _, ok := domain.ParseItemType(string(itemType)); !ok {
		return nil, fmt.Errorf("unknown item type %q", itemType)
	}
	if idOrSlug == "" {
		return nil, domain.ErrItemNotFound
	}

	if l.cache != nil {
		if cached, err := l.cache.GetItem(ctx, itemType, idOrSlug); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			l.log.WithFields(logrus.Fields{"item": idOrSlug, "type": itemType}).Warnf("item cache read failed: %v", err)
		}
	}

	rec, err := l.source.FindRecord(ctx, itemType, idOrSlug)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.ErrItemNotFound
	}

	item, err := Normalize(itemType, rec, l.currency)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if err := l.cache.SetItem(ctx, itemType, idOrSlug, item, l.cacheTTL); err != nil {
			l.log.WithFields(logrus.Fields{"item": item.ID, "type": itemType}).Warnf("item cache write failed: %v", err)
		}
	}
	return &item, nil
}

var _ ItemLoader = (*Loader)(nil)
