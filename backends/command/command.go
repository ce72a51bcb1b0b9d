// Package command runs an external program and parses its output as the
// remaining time. The default argv asks Slurm's squeue for the %L field of
// the current job.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"yogrt/pkg/backend"
	logx "yogrt/pkg/logx"
)

const Name = "command"

var (
	DefaultArgv     = []string{"squeue", "--noheader", "--format=%L", "--jobs={job_id}"}
	DefaultJobIDVar = "SLURM_JOB_ID"
)

const (
	DefaultTimeout     = 10 * time.Second
	DefaultMinInterval = 30 * time.Second
)

// Config selects the program to run. Every "{job_id}" in Argv is replaced with
// the value of JobIDVar.
//
// MinInterval rate-limits invocations independently of the polling policy so
// a misconfigured policy cannot flood the scheduler.
type Config struct {
	Argv        []string `json:"argv,omitempty"`
	JobIDVar    string   `json:"job_id_var,omitempty"`
	Timeout     string   `json:"timeout,omitempty"`
	MinInterval string   `json:"min_interval,omitempty"`
	RankVars    []string `json:"rank_vars,omitempty"`
}

func Factory() backend.Factory {
	return backend.Factory{
		Name:   Name,
		Detect: detect,
		New: func(raw json.RawMessage) (backend.Backend, error) {
			var cfg Config
			if err := backend.DecodeConfig(raw, &cfg); err != nil {
				return nil, err
			}
			return New(cfg)
		},
	}
}

// detect reports a Slurm job with squeue reachable.
func detect() bool {
	if strings.TrimSpace(os.Getenv(DefaultJobIDVar)) == "" {
		return false
	}
	_, err := exec.LookPath(DefaultArgv[0])
	return err == nil
}

type Backend struct {
	argv    []string
	jobVar  string
	timeout time.Duration
	limiter *rate.Limiter

	rankVars []string
	rank     int
	log      logx.Logger
}

func New(cfg Config) (*Backend, error) {
	b := &Backend{
		argv:     cfg.Argv,
		jobVar:   strings.TrimSpace(cfg.JobIDVar),
		timeout:  DefaultTimeout,
		rankVars: cfg.RankVars,
		log:      logx.Nop(),
	}
	if len(b.argv) == 0 {
		b.argv = DefaultArgv
	}
	if b.jobVar == "" {
		b.jobVar = DefaultJobIDVar
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("command backend: invalid timeout %q", cfg.Timeout)
		}
		b.timeout = d
	}
	minInterval := DefaultMinInterval
	if cfg.MinInterval != "" {
		d, err := time.ParseDuration(cfg.MinInterval)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("command backend: invalid min_interval %q", cfg.MinInterval)
		}
		minInterval = d
	}
	if minInterval > 0 {
		b.limiter = rate.NewLimiter(rate.Every(minInterval), 1)
	}
	return b, nil
}

func (b *Backend) Init(_ context.Context, verbosity int) error {
	if _, err := exec.LookPath(b.argv[0]); err != nil {
		return fmt.Errorf("command backend: %w", err)
	}
	b.log = logx.NewConsole(logx.LevelForVerbosity(verbosity)).With(logx.String("backend", Name))
	b.rank = backend.RankFromEnv(b.rankVars...)
	return nil
}

func (b *Backend) Name() string { return Name }
func (b *Backend) Rank() int    { return b.rank }

func (b *Backend) Remaining(ctx context.Context, _ backend.Query) (int, error) {
	if b.limiter != nil && !b.limiter.Allow() {
		return backend.Unknown, backend.ErrThrottled
	}

	jobID := strings.TrimSpace(os.Getenv(b.jobVar))
	argv := make([]string, len(b.argv))
	for i, a := range b.argv {
		if strings.Contains(a, "{job_id}") && jobID == "" {
			return backend.Unknown, fmt.Errorf("%s not set: %w", b.jobVar, backend.ErrUnknown)
		}
		argv[i] = backend.ExpandJobID(a, jobID)
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Children that inherit stdout must not outlive the timeout.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	b.log.Trace("command finished",
		logx.Any("argv", argv),
		logx.Duration("took", time.Since(start)),
		logx.Err(err),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return backend.Unknown, fmt.Errorf("%s: timed out after %s", argv[0], b.timeout)
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return backend.Unknown, fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return backend.Unknown, fmt.Errorf("%s: %w", argv[0], err)
	}

	return backend.ParseRemaining(firstLine(stdout.String()))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
