package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"busticket/internal/domain/models"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const loadTimeout = 5 * time.Second

// SeatMap caches raw ledger rows per schedule. Entries are short lived and
// dropped on every seat mutation; viewer projection happens after the read
// so one entry serves every user.
type SeatMap struct {
	client redis.Cmdable
	ttl    time.Duration
	group  singleflight.Group
}

func NewSeatMap(client redis.Cmdable, ttl time.Duration) *SeatMap {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &SeatMap{client: client, ttl: ttl}
}

// NewClient connects to redis from a redis:// URL.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 3

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func Key(scheduleID int64) string {
	return "seatmap:" + strconv.FormatInt(scheduleID, 10)
}

// Load returns cached rows or calls load once for all concurrent misses of
// the same schedule. Redis errors degrade to a direct load.
func (c *SeatMap) Load(ctx context.Context, scheduleID int64, load func(context.Context) ([]models.SeatAvailability, error)) ([]models.SeatAvailability, error) {
	key := Key(scheduleID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rows []models.SeatAvailability
		if json.Unmarshal(raw, &rows) == nil {
			return rows, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		log.Printf("[CACHE] action=get key=%s err=%v", key, err)
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Waiters share this flight; one caller going away must not fail them.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		rows, err := load(fctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(rows); err == nil {
			if err := c.client.Set(fctx, key, data, c.ttl).Err(); err != nil {
				log.Printf("[CACHE] action=set key=%s err=%v", key, err)
			}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	rows := v.([]models.SeatAvailability)
	out := make([]models.SeatAvailability, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

func (c *SeatMap) Invalidate(ctx context.Context, scheduleIDs ...int64) {
	if len(scheduleIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(scheduleIDs))
	for _, id := range scheduleIDs {
		keys = append(keys, Key(id))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[CACHE] action=invalidate keys=%v err=%v", keys, err)
	}
}
