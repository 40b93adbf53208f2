package redisx

import (
    "context"
    "errors"
    "time"

    "github.com/redis/go-redis/v9"
)

// ErrMiss reports a key that does not exist.
var ErrMiss = errors.New("redisx: miss")

type Client struct { Rdb *redis.Client }

func New(addr string, password string, db int) *Client {
    rdb := redis.NewClient(&redis.Options{
        Addr:         addr,
        Password:     password,
        DB:           db,
        DialTimeout:  5 * time.Second,
        ReadTimeout:  3 * time.Second,
        WriteTimeout: 3 * time.Second,
    })
    return &Client{Rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
    return c.Rdb.Ping(ctx).Err()
}

func (c *Client) Close() error { return c.Rdb.Close() }

// Get returns ErrMiss for absent keys.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
    b, err := c.Rdb.Get(ctx, key).Bytes()
    if errors.Is(err, redis.Nil) {
        return nil, ErrMiss
    }
    return b, err
}

func (c *Client) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
    return c.Rdb.Set(ctx, key, val, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
    return c.Rdb.Del(ctx, keys...).Err()
}

func (c *Client) SetNX(ctx context.Context, key string, val string, ttl time.Duration) (bool, error) {
    return c.Rdb.SetNX(ctx, key, val, ttl).Result()
}
