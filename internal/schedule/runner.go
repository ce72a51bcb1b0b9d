package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "yogrt/pkg/logx"
)

// Runner invokes one job on a schedule. Overlapping runs are skipped.
type Runner struct {
	spec   Spec
	tag    string
	loc    *time.Location
	log    logx.Logger
	parser cron.Parser

	mu sync.Mutex
	c  *cron.Cron
}

func NewRunner(spec Spec, tag string, loc *time.Location, log logx.Logger) *Runner {
	if log.IsZero() {
		log = logx.Nop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Runner{
		spec: spec,
		tag:  tag,
		loc:  loc,
		log:  log,
		// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
}

// Run schedules job and blocks until ctx is done, then waits for a running
// job to return.
func (r *Runner) Run(ctx context.Context, job func(context.Context)) error {
	r.mu.Lock()
	if r.c != nil {
		r.mu.Unlock()
		return fmt.Errorf("schedule: runner already started")
	}
	c := cron.New(
		cron.WithParser(r.parser),
		cron.WithLocation(r.loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{r.log})),
	)
	wrapped := cron.FuncJob(func() { job(ctx) })

	switch r.spec.Kind {
	case KindInterval:
		sched, jitter := withSpread(r.spec.Every, time.Now().In(r.loc), r.tag)
		c.Schedule(sched, wrapped)
		r.log.Debug("interval scheduled", logx.Duration("every", r.spec.Every), logx.Duration("first_delay", jitter))
	default:
		if _, err := c.AddJob(r.spec.Cron, wrapped); err != nil {
			r.mu.Unlock()
			return fmt.Errorf("schedule %q: %w", r.spec.Cron, err)
		}
		r.log.Debug("cron scheduled", logx.String("spec", r.spec.Cron), logx.String("tz", r.loc.String()))
	}
	r.c = c
	r.mu.Unlock()

	c.Start()
	<-ctx.Done()

	start := time.Now()
	<-c.Stop().Done()
	r.log.Debug("schedule stopped", logx.Duration("took", time.Since(start)))

	r.mu.Lock()
	r.c = nil
	r.mu.Unlock()
	return nil
}

// Validate reports whether a cron spec parses, without starting anything.
func (r *Runner) Validate() error {
	if r.spec.Kind != KindCron {
		return nil
	}
	_, err := r.parser.Parse(r.spec.Cron)
	return err
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Trace("cron: "+msg, kvFields(kv)...)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Warn("cron: "+msg, append(kvFields(kv), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logx.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
