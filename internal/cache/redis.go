package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parkir/internal/config"
)

const (
	dashboardKey     = "dashboard:summary"
	operatorAuthKeyF = "operators:auth:%s"
	operatorAuthTTL  = 5 * time.Minute
)

// Client is a read-through cache in front of the dashboard aggregation and
// the operator credential lookup. It is never authoritative: allocation
// decisions always go through the database.
type Client struct {
	rdb          *redis.Client
	dashboardTTL time.Duration
}

func NewClient(cfg config.CacheConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb, dashboardTTL: cfg.DashboardTTL}, nil
}

// GetDashboardRaw returns the cached dashboard JSON, or an error on miss.
func (c *Client) GetDashboardRaw(ctx context.Context) ([]byte, error) {
	return c.rdb.Get(ctx, dashboardKey).Bytes()
}

func (c *Client) SetDashboard(ctx context.Context, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, dashboardKey, payload, c.dashboardTTL).Err()
}

// InvalidateDashboard drops the cached summary. Called after every entry and
// exit commit so occupancy counts never go stale beyond the TTL.
func (c *Client) InvalidateDashboard(ctx context.Context) error {
	return c.rdb.Del(ctx, dashboardKey).Err()
}

// OperatorAuth is the cached credential record for one operator. IsActive is
// cached alongside the hash so a stale entry for a deactivated account can be
// recognized and dropped.
type OperatorAuth struct {
	PasswordHash string `json:"password_hash"`
	OperatorID   int64  `json:"operator_id"`
	IsActive     bool   `json:"is_active"`
}

// GetOperatorAuth returns the cached credential record for a username, or an
// error on miss.
func (c *Client) GetOperatorAuth(ctx context.Context, username string) (*OperatorAuth, error) {
	key := fmt.Sprintf(operatorAuthKeyF, username)
	cached, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var entry OperatorAuth
	if err := json.Unmarshal([]byte(cached), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Client) SetOperatorAuth(ctx context.Context, username string, entry OperatorAuth) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(operatorAuthKeyF, username)
	return c.rdb.Set(ctx, key, payload, operatorAuthTTL).Err()
}

// DeleteOperatorAuth drops a cached credential record. Called when the
// database denies a username so the cache cannot keep serving it.
func (c *Client) DeleteOperatorAuth(ctx context.Context, username string) error {
	key := fmt.Sprintf(operatorAuthKeyF, username)
	return c.rdb.Del(ctx, key).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
