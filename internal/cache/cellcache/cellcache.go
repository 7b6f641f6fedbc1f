// Package cellcache memoizes decoded pixel cells: an in-process LRU in front
// of Redis, in front of earthpixel.Extract.
package cellcache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/earthpixel/internal/cache/keys"
	"github.com/mohammed-shakir/earthpixel/internal/core/observability"
	"github.com/mohammed-shakir/earthpixel/internal/decision"
	"github.com/mohammed-shakir/earthpixel/pkg/earthpixel"
)

// Store is the Redis subset the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	MSet(ctx context.Context, kv map[string][]byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Options struct {
	Size      int
	Namespace string
	OpTimeout time.Duration
	Logger    *slog.Logger
}

type Cache struct {
	l1   *lru.Cache[string, earthpixel.Cell]
	l2   Store
	dec  decision.Interface
	opts Options
}

// New builds a cache. l2 and dec may be nil; without them only the LRU is
// used and nothing is promoted.
func New(l2 Store, dec decision.Interface, opts Options) (*Cache, error) {
	if opts.Size <= 0 {
		opts.Size = 4096
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	l1, err := lru.New[string, earthpixel.Cell](opts.Size)
	if err != nil {
		return nil, fmt.Errorf("cellcache lru: %w", err)
	}
	return &Cache{l1: l1, l2: l2, dec: dec, opts: opts}, nil
}

// Extract returns the same Cell earthpixel.Extract would. Redis failures are
// logged and fall through to computation; malformed keys are never cached.
func (c *Cache) Extract(ctx context.Context, key string) (earthpixel.Cell, error) {
	if cell, ok := c.l1.Get(key); ok {
		observability.IncCellCache("lru", "hit")
		return cell, nil
	}
	observability.IncCellCache("lru", "miss")

	if cell, ok := c.fromRedis(ctx, key); ok {
		c.l1.Add(key, cell)
		return cell, nil
	}

	cell, err := earthpixel.Extract(key)
	if err != nil {
		observability.IncCellCache("compute", "invalid")
		return earthpixel.Cell{}, err
	}
	observability.IncCellCache("compute", "ok")
	c.l1.Add(key, cell)
	c.promote(ctx, key, cell)
	return cell, nil
}

// ExtractMany is Extract for a batch, answered in input order. Redis is read
// with a single MGET and promotions are written with one pipeline per TTL.
// Any malformed key fails the whole batch.
func (c *Cache) ExtractMany(ctx context.Context, pixelKeys []string) ([]earthpixel.Cell, error) {
	out := make([]earthpixel.Cell, len(pixelKeys))
	var missing []int
	for i, k := range pixelKeys {
		if cell, ok := c.l1.Get(k); ok {
			observability.IncCellCache("lru", "hit")
			out[i] = cell
			continue
		}
		observability.IncCellCache("lru", "miss")
		if _, _, _, err := earthpixel.DecodeKey(k); err != nil {
			observability.IncCellCache("compute", "invalid")
			return nil, err
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	found := c.manyFromRedis(ctx, pixelKeys, missing)

	byTTL := map[time.Duration]map[string][]byte{}
	for _, i := range missing {
		k := pixelKeys[i]
		if cell, ok := found[k]; ok {
			out[i] = cell
			c.l1.Add(k, cell)
			continue
		}
		cell, err := earthpixel.Extract(k)
		if err != nil {
			observability.IncCellCache("compute", "invalid")
			return nil, err
		}
		observability.IncCellCache("compute", "ok")
		out[i] = cell
		c.l1.Add(k, cell)
		if c.shouldPromote(k) {
			body, err := json.Marshal(cell)
			if err != nil {
				continue
			}
			ttl := c.dec.TTL(k)
			if byTTL[ttl] == nil {
				byTTL[ttl] = map[string][]byte{}
			}
			byTTL[ttl][keys.Cell(c.opts.Namespace, k)] = body
		}
	}
	c.promoteMany(ctx, byTTL)
	return out, nil
}

func (c *Cache) Len() int { return c.l1.Len() }

func (c *Cache) Purge() { c.l1.Purge() }

func (c *Cache) fromRedis(ctx context.Context, key string) (earthpixel.Cell, bool) {
	if c.l2 == nil {
		return earthpixel.Cell{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	defer cancel()

	raw, ok, err := c.l2.Get(ctx, keys.Cell(c.opts.Namespace, key))
	if err != nil {
		observability.IncCellCache("redis", "error")
		c.opts.Logger.WarnContext(ctx, "cell cache read failed", "key", key, "err", err)
		return earthpixel.Cell{}, false
	}
	if !ok {
		observability.IncCellCache("redis", "miss")
		return earthpixel.Cell{}, false
	}
	cell, ok := c.decode(ctx, key, raw)
	if !ok {
		c.drop(ctx, keys.Cell(c.opts.Namespace, key))
		return earthpixel.Cell{}, false
	}
	return cell, true
}

func (c *Cache) manyFromRedis(ctx context.Context, pixelKeys []string, idx []int) map[string]earthpixel.Cell {
	if c.l2 == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	defer cancel()

	rks := make([]string, len(idx))
	for j, i := range idx {
		rks[j] = keys.Cell(c.opts.Namespace, pixelKeys[i])
	}
	raws, err := c.l2.MGet(ctx, rks)
	if err != nil {
		observability.IncCellCache("redis", "error")
		c.opts.Logger.WarnContext(ctx, "cell cache batch read failed", "keys", len(rks), "err", err)
		return nil
	}

	out := make(map[string]earthpixel.Cell, len(raws))
	var bad []string
	for j, i := range idx {
		raw, ok := raws[rks[j]]
		if !ok {
			observability.IncCellCache("redis", "miss")
			continue
		}
		cell, ok := c.decode(ctx, pixelKeys[i], raw)
		if !ok {
			bad = append(bad, rks[j])
			continue
		}
		out[pixelKeys[i]] = cell
	}
	c.drop(ctx, bad...)
	return out
}

func (c *Cache) decode(ctx context.Context, key string, raw []byte) (earthpixel.Cell, bool) {
	var cell earthpixel.Cell
	if err := json.Unmarshal(raw, &cell); err != nil || cell.Key != key {
		observability.IncCellCache("redis", "corrupt")
		c.opts.Logger.WarnContext(ctx, "cell cache entry unusable", "key", key, "err", err)
		return earthpixel.Cell{}, false
	}
	observability.IncCellCache("redis", "hit")
	return cell, true
}

// drop removes unusable entries so they are recomputed and rewritten.
func (c *Cache) drop(ctx context.Context, redisKeys ...string) {
	if len(redisKeys) == 0 {
		return
	}
	if err := c.l2.Del(ctx, redisKeys...); err != nil {
		c.opts.Logger.WarnContext(ctx, "cell cache delete failed", "keys", len(redisKeys), "err", err)
	}
}

func (c *Cache) shouldPromote(key string) bool {
	return c.l2 != nil && c.dec != nil && c.dec.ShouldCache([]string{key})
}

func (c *Cache) promoteMany(ctx context.Context, byTTL map[time.Duration]map[string][]byte) {
	if len(byTTL) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	defer cancel()
	for ttl, kv := range byTTL {
		if err := c.l2.MSet(ctx, kv, ttl); err != nil {
			observability.IncCellCache("redis", "write_error")
			c.opts.Logger.WarnContext(ctx, "cell cache batch write failed", "keys", len(kv), "err", err)
			continue
		}
		for range kv {
			observability.IncCellCache("redis", "promote")
		}
	}
}

func (c *Cache) promote(ctx context.Context, key string, cell earthpixel.Cell) {
	if !c.shouldPromote(key) {
		return
	}
	body, err := json.Marshal(cell)
	if err != nil {
		c.opts.Logger.WarnContext(ctx, "cell encode failed", "key", key, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.opts.OpTimeout)
	defer cancel()
	if err := c.l2.Set(ctx, keys.Cell(c.opts.Namespace, key), body, c.dec.TTL(key)); err != nil {
		observability.IncCellCache("redis", "write_error")
		c.opts.Logger.WarnContext(ctx, "cell cache write failed", "key", key, "err", err)
		return
	}
	observability.IncCellCache("redis", "promote")
}
