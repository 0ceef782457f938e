// Package cache is the read-through prescription cache backed by Redis.
package cache

import (
	"Ashray/models"
	"Ashray/util"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

type PrescriptionCache interface {
	Get(ctx context.Context, id string) (*models.Prescription, bool, error)
	Set(ctx context.Context, p *models.Prescription) error
	Invalidate(ctx context.Context, id string) error
}

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// NewClient dials Redis and pings it once.
func NewClient(ctx context.Context, opts Options) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

type Redis struct {
	rdb *goredis.Client
	ttl time.Duration
}

func NewRedis(rdb *goredis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func Key(id string) string {
	return util.PrescriptionKey + id
}

func (r *Redis) Get(ctx context.Context, id string) (*models.Prescription, bool, error) {
	raw, err := r.rdb.Get(ctx, Key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	p, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func (r *Redis) Set(ctx context.Context, p *models.Prescription) error {
	raw, err := encode(p)
	if err != nil {
		return err
	}
	return r.rdb.Set(ctx, Key(p.ID.Hex()), raw, r.ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, Key(id)).Err()
}

// Signed URLs expire on their own schedule, so they are never cached.
func encode(p *models.Prescription) ([]byte, error) {
	cp := *p
	if cp.PrescriptionImage != nil {
		img := *cp.PrescriptionImage
		img.SignedURL = ""
		cp.PrescriptionImage = &img
	}
	return json.Marshal(&cp)
}

func decode(raw []byte) (*models.Prescription, error) {
	var p models.Prescription
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("cache: decode prescription: %w", err)
	}
	return &p, nil
}

// Noop is used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.Prescription, bool, error) { return nil, false, nil }
func (Noop) Set(context.Context, *models.Prescription) error                 { return nil }
func (Noop) Invalidate(context.Context, string) error                        { return nil }
