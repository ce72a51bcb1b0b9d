// Package sqlite reads job deadlines from a SQLite database, such as a site
// accounting snapshot or a table maintained by a prolog script.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"yogrt/pkg/backend"
)

const Name = "sqlite"

const (
	DefaultQuery    = "SELECT end_time FROM jobs WHERE job_id = ?"
	DefaultJobIDVar = "YOGRT_JOB_ID"

	ModeEndTime   = "end_time"
	ModeRemaining = "remaining"
)

// Config describes where the deadline lives. Query takes the job id as its
// only argument and must return a single column: an end time (Unix seconds or
// RFC 3339) in end_time mode, or a remaining duration in remaining mode.
type Config struct {
	Path        string   `json:"path"`
	Query       string   `json:"query,omitempty"`
	Mode        string   `json:"mode,omitempty"`
	JobIDVar    string   `json:"job_id_var,omitempty"`
	BusyTimeout string   `json:"busy_timeout,omitempty"`
	RankVars    []string `json:"rank_vars,omitempty"`
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
	cfg         Config
	busyTimeout time.Duration

	db   *sql.DB
	rank int
}

func New(cfg Config) (*Backend, error) {
	cfg.Path = strings.TrimSpace(cfg.Path)
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if strings.TrimSpace(cfg.Query) == "" {
		cfg.Query = DefaultQuery
	}
	if strings.TrimSpace(cfg.JobIDVar) == "" {
		cfg.JobIDVar = DefaultJobIDVar
	}
	switch cfg.Mode {
	case "":
		cfg.Mode = ModeEndTime
	case ModeEndTime, ModeRemaining:
	default:
		return nil, fmt.Errorf("sqlite backend: unknown mode %q", cfg.Mode)
	}
	b := &Backend{cfg: cfg}
	if cfg.BusyTimeout != "" {
		d, err := time.ParseDuration(cfg.BusyTimeout)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("sqlite backend: invalid busy_timeout %q", cfg.BusyTimeout)
		}
		b.busyTimeout = d
	}
	return b, nil
}

// Init opens the database and marks the connection query-only. A missing file
// is an init failure.
func (b *Backend) Init(ctx context.Context, _ int) error {
	if _, err := os.Stat(b.cfg.Path); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", b.cfg.Path)
	if err != nil {
		return err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{"PRAGMA query_only = 1"}
	if b.busyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("PRAGMA busy_timeout = %d", b.busyTimeout.Milliseconds()))
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return fmt.Errorf("sqlite backend: %s: %w", p, err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	b.db = db
	b.rank = backend.RankFromEnv(b.cfg.RankVars...)
	return nil
}

func (b *Backend) Name() string { return Name }
func (b *Backend) Rank() int    { return b.rank }

func (b *Backend) Remaining(ctx context.Context, q backend.Query) (int, error) {
	if b.db == nil {
		return backend.Unknown, errors.New("sqlite backend: not open")
	}
	jobID := strings.TrimSpace(os.Getenv(b.cfg.JobIDVar))
	if jobID == "" {
		return backend.Unknown, fmt.Errorf("%s not set: %w", b.cfg.JobIDVar, backend.ErrUnknown)
	}

	var v sql.NullString
	err := b.db.QueryRowContext(ctx, b.cfg.Query, jobID).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.Unknown, fmt.Errorf("job %s not found: %w", jobID, backend.ErrUnknown)
	}
	if err != nil {
		return backend.Unknown, err
	}
	if !v.Valid {
		return backend.Unknown, fmt.Errorf("job %s has no deadline: %w", jobID, backend.ErrUnknown)
	}

	if b.cfg.Mode == ModeRemaining {
		return backend.ParseRemaining(v.String)
	}
	end, err := backend.ParseEndTime(v.String)
	if err != nil {
		return backend.Unknown, err
	}
	return backend.Until(end, q.Now), nil
}

func (b *Backend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
