package symbolcache

import (
	"context"
	"sync"
	"time"

	"klinefetch/pkg/bybit"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Lister fetches the live symbol list. *bybit.RESTClient satisfies it.
type Lister interface {
	GetSymbols(ctx context.Context, category bybit.Category) ([]string, error)
}

type entry struct {
	symbols  []string
	loadedAt time.Time
}

// Cache keeps one symbol list per category. A list loaded before the most
// recent UTC midnight is stale and reloaded on the next read.
type Cache struct {
	src    Lister
	logger *zap.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[bybit.Category]entry
	group   singleflight.Group
}

func New(src Lister, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		src:     src,
		logger:  logger,
		now:     time.Now,
		entries: make(map[bybit.Category]entry),
	}
}

// GetSymbols returns a copy of the cached list, loading it first if missing or stale.
// Concurrent misses for one category share a single upstream call, and a
// caller that gives up does not cancel it for the others.
func (c *Cache) GetSymbols(ctx context.Context, category bybit.Category) ([]string, error) {
	c.mu.RLock()
	e, ok := c.entries[category]
	c.mu.RUnlock()
	if ok && !e.loadedAt.Before(lastMidnight(c.now())) {
		return clone(e.symbols), nil
	}

	// The shared load outlives any single caller; the REST client timeout bounds it.
	ch := c.group.DoChan(string(category), func() (any, error) {
		return c.load(context.WithoutCancel(ctx), category)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return clone(r.Val.([]string)), nil
	}
}

// Refresh reloads one category unconditionally.
func (c *Cache) Refresh(ctx context.Context, category bybit.Category) error {
	_, err := c.load(ctx, category)
	return err
}

func (c *Cache) load(ctx context.Context, category bybit.Category) ([]string, error) {
	symbols, err := c.src.GetSymbols(ctx, category)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[category] = entry{symbols: symbols, loadedAt: c.now()}
	c.mu.Unlock()
	c.logger.Info("loaded symbols", zap.String("category", string(category)), zap.Int("count", len(symbols)))
	return symbols, nil
}

// StartMidnightRefresh reloads the given categories once now, then at every
// UTC midnight until ctx is done. Failures are logged and the stale list kept.
func (c *Cache) StartMidnightRefresh(ctx context.Context, categories ...bybit.Category) {
	go func() {
		for {
			for _, cat := range categories {
				if err := c.Refresh(ctx, cat); err != nil {
					c.logger.Warn("symbol refresh failed", zap.String("category", string(cat)), zap.Error(err))
				}
			}

			now := c.now()
			timer := time.NewTimer(lastMidnight(now).Add(24 * time.Hour).Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

func lastMidnight(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
