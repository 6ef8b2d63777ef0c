package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/mohammad-safakhou/notesmith/internal/search"
	"github.com/mohammad-safakhou/notesmith/internal/store"
	"github.com/redis/go-redis/v9"
)

// jobRetention is how long terminal jobs are kept before pruning.
const jobRetention = 7 * 24 * time.Hour

// Scheduler runs periodic maintenance: pruning terminal jobs past their
// retention window and reporting search-index health. A Redis SetNX lock
// keeps multiple replicas from running maintenance concurrently.
type Scheduler struct {
	Store    *store.Store
	Rdb      *redis.Client
	Index    *search.Index
	Logger   *log.Logger
	Stop     chan struct{}
	Schedule string // cron spec, @hourly when empty

	lastRun *time.Time
}

func (s *Scheduler) Start() {
	if s.Logger == nil {
		s.Logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	ticker := time.NewTicker(1 * time.Hour)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx := context.Background()

	spec := s.Schedule
	if spec == "" {
		spec = "@hourly"
	}
	if !isDue(spec, s.lastRun) {
		return
	}

	// distributed lock to avoid duplicate maintenance runs
	if s.Rdb != nil {
		lockKey := "notesmith:sched:lock:maintenance"
		ok, _ := s.Rdb.SetNX(ctx, lockKey, "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, lockKey)
	}

	now := time.Now()
	s.lastRun = &now

	pruned, err := s.Store.PruneJobs(ctx, now.Add(-jobRetention))
	if err != nil {
		s.Logger.Printf("job pruning failed: %v", err)
		return
	}
	if pruned > 0 {
		s.Logger.Printf("pruned %d terminal jobs older than %s", pruned, jobRetention)
	}

	if s.Index != nil {
		if docs, err := s.Index.DocCount(); err != nil {
			s.Logger.Printf("index doc count failed: %v", err)
		} else {
			s.Logger.Printf("search index holds %d documents", docs)
		}
	}
}

// isDue determines if a maintenance run with cronSpec should fire now based
// on the last run time. Supports "@daily", "@hourly", and standard 5-field
// cron expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// invalid spec behaves like @daily
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
