// Package redis reads job deadlines from a Redis key published by the
// scheduler or a prolog script.
//
// In ttl mode the key's own expiry is the deadline; in end_time mode the value
// is an absolute end time; in remaining mode it is a remaining duration.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"yogrt/pkg/backend"
)

const Name = "redis"

const (
	DefaultURL      = "redis://127.0.0.1:6379/0"
	DefaultKey      = "yogrt:job:{job_id}"
	DefaultJobIDVar = "SLURM_JOB_ID"
	DefaultTimeout  = time.Second

	ModeTTL       = "ttl"
	ModeEndTime   = "end_time"
	ModeRemaining = "remaining"
)

type Config struct {
	URL      string   `json:"url,omitempty"`
	Key      string   `json:"key,omitempty"`
	Mode     string   `json:"mode,omitempty"`
	JobIDVar string   `json:"job_id_var,omitempty"`
	Timeout  string   `json:"timeout,omitempty"`
	RankVars []string `json:"rank_vars,omitempty"`
}

func Factory() backend.Factory {
	return backend.Factory{
		Name: Name,
		New: func(raw json.RawMessage) (backend.Backend, error) {
			var cfg Config
			if err := backend.DecodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return New(cfg)
		},
	}
}

type Backend struct {
	cfg     Config
	timeout time.Duration

	client redis.Cmdable
	closer io.Closer
	rank   int
}

func New(cfg Config) (*Backend, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = DefaultURL
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis backend: %w", err)
	}
	c := redis.NewClient(opt)
	b, err := NewWithClient(cfg, c, c)
	if err != nil {
		_ = c.Close()
		return nil, err
	}
	return b, nil
}

// NewWithClient builds the backend on an existing client. closer, when
// non-nil, is closed by Close.
func NewWithClient(cfg Config, client redis.Cmdable, closer io.Closer) (*Backend, error) {
	if client == nil {
		return nil, errors.New("redis backend: nil client")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		cfg.Key = DefaultKey
	}
	if strings.TrimSpace(cfg.JobIDVar) == "" {
		cfg.JobIDVar = DefaultJobIDVar
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeTTL
	case ModeTTL, ModeEndTime, ModeRemaining:
	default:
		return nil, fmt.Errorf("redis backend: unknown mode %q", cfg.Mode)
	}
	b := &Backend{cfg: cfg, timeout: DefaultTimeout, client: client, closer: closer}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("redis backend: invalid timeout %q", cfg.Timeout)
		}
		b.timeout = d
	}
	return b, nil
}

func (b *Backend) Init(ctx context.Context, _ int) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	b.rank = backend.RankFromEnv(b.cfg.RankVars...)
	return nil
}

func (b *Backend) Name() string { return Name }
func (b *Backend) Rank() int    { return b.rank }

// Key returns the Redis key for the current job.
func (b *Backend) Key() (string, error) {
	if !strings.Contains(b.cfg.Key, "{job_id}") {
		return b.cfg.Key, nil
	}
	jobID := strings.TrimSpace(os.Getenv(b.cfg.JobIDVar))
	if jobID == "" {
		return "", fmt.Errorf("%s not set: %w", b.cfg.JobIDVar, backend.ErrUnknown)
	}
	return backend.ExpandJobID(b.cfg.Key, jobID), nil
}

func (b *Backend) Remaining(ctx context.Context, q backend.Query) (int, error) {
	key, err := b.Key()
	if err != nil {
		return backend.Unknown, err
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if b.cfg.Mode == ModeTTL {
		ttl, err := b.client.TTL(ctx, key).Result()
		if err != nil {
			return backend.Unknown, fmt.Errorf("redis ttl %s: %w", key, err)
		}
		return fromTTL(key, ttl)
	}

	v, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return backend.Unknown, fmt.Errorf("redis key %s missing: %w", key, backend.ErrUnknown)
	}
	if err != nil {
		return backend.Unknown, fmt.Errorf("redis get %s: %w", key, err)
	}
	if b.cfg.Mode == ModeRemaining {
		return backend.ParseRemaining(v)
	}
	end, err := backend.ParseEndTime(v)
	if err != nil {
		return backend.Unknown, err
	}
	return backend.Until(end, q.Now), nil
}

func (b *Backend) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

// fromTTL converts a TTL reply. Redis reports a missing key or a key without
// expiry with negative sentinels.
func fromTTL(key string, ttl time.Duration) (int, error) {
	if ttl < 0 {
		return backend.Unknown, fmt.Errorf("redis key %s has no expiry: %w", key, backend.ErrUnknown)
	}
	return int(ttl / time.Second), nil
}
